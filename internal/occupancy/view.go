package occupancy

import "github.com/iliyamo/sukha-pms/internal/model"

// UnitView is a unit with its live occupancy, as listed to staff.
type UnitView struct {
	ID           uint64            `json:"id"`
	DisplayName  string            `json:"display_name"`
	PropertyName string            `json:"property_name"`
	UnitType     model.UnitType    `json:"unit_type"`
	FloorNumber  int               `json:"floor_number"`
	BuildingName *string           `json:"building_name"`
	BillingMode  model.BillingMode `json:"billing_mode"`
	AdminStatus  model.UnitStatus  `json:"admin_status"`
	Projection
}

// AvailableUnit is the reduced shape returned by the available-units query;
// it carries no status projection.
type AvailableUnit struct {
	ID           uint64         `json:"id"`
	DisplayName  string         `json:"display_name"`
	PropertyName string         `json:"property_name"`
	UnitType     model.UnitType `json:"unit_type"`
	FloorNumber  int            `json:"floor_number"`
	BuildingName *string        `json:"building_name"`
}

// View projects a single unit.
func View(u model.Unit, stay *model.Stay) UnitView {
	return UnitView{
		ID:           u.ID,
		DisplayName:  u.DisplayName(),
		PropertyName: u.PropertyName,
		UnitType:     u.UnitType,
		FloorNumber:  u.FloorNumber,
		BuildingName: u.BuildingName,
		BillingMode:  u.BillingMode,
		AdminStatus:  u.Status,
		Projection:   Resolve(u, stay),
	}
}

// Views projects every unit against the active stays, keeping unit order.
func Views(units []model.Unit, active []model.Stay) []UnitView {
	byUnit := ActiveByUnit(active)
	out := make([]UnitView, 0, len(units))
	for _, u := range units {
		out = append(out, View(u, byUnit[u.ID]))
	}
	return out
}

// AvailableUnits is Available reshaped for the API.
func AvailableUnits(units []model.Unit, active []model.Stay) []AvailableUnit {
	free := Available(units, active)
	out := make([]AvailableUnit, 0, len(free))
	for _, u := range free {
		out = append(out, AvailableUnit{
			ID:           u.ID,
			DisplayName:  u.DisplayName(),
			PropertyName: u.PropertyName,
			UnitType:     u.UnitType,
			FloorNumber:  u.FloorNumber,
			BuildingName: u.BuildingName,
		})
	}
	return out
}
