package model

// Unit is a physical hotel room or apartment. Occupancy is never stored on a
// unit; it is derived from the unit's active stay.
//
// Fields:
//
//	ID            – units.id
//	PropertyName  – e.g. "Sukha Retreats"
//	UnitNumber    – e.g. "307", "B101"; unique within the registry
//	UnitType      – room | apartment
//	FloorNumber   – 1, 2, 3 ...
//	BuildingBlock – A, B, C for apartments, nil for rooms
//	BuildingName  – "New Building", "Old Building" or nil
//	BillingMode   – daily | monthly
//	Status        – administrative status, active | maintenance
type Unit struct {
	ID            uint64      `json:"id"`
	PropertyName  string      `json:"property_name"`
	UnitNumber    string      `json:"unit_number"`
	UnitType      UnitType    `json:"unit_type"`
	FloorNumber   int         `json:"floor_number"`
	BuildingBlock *string     `json:"building_block"`
	BuildingName  *string     `json:"building_name"`
	BillingMode   BillingMode `json:"billing_mode"`
	Status        UnitStatus  `json:"status"`
}

// DisplayName renders the unit as staff see it: apartments with a building
// name become "B101 (New Building)", everything else is the bare number.
func (u Unit) DisplayName() string {
	if u.UnitType == UnitTypeApartment && u.BuildingName != nil && *u.BuildingName != "" {
		return u.UnitNumber + " (" + *u.BuildingName + ")"
	}
	return u.UnitNumber
}
