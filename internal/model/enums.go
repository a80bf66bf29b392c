package model

import (
	"encoding/json"
	"fmt"
)

// The string-backed enums below are closed: JSON decoding and SQL scanning
// reject anything outside the listed values so an unrecognised value never
// reaches the ledger or the occupancy resolver.

// UnitType distinguishes hotel rooms from apartments.
type UnitType string

const (
	UnitTypeRoom      UnitType = "room"
	UnitTypeApartment UnitType = "apartment"
)

func (t UnitType) Valid() bool { return t == UnitTypeRoom || t == UnitTypeApartment }

func (t *UnitType) UnmarshalJSON(b []byte) error { return decodeEnum(b, t, "unit_type") }
func (t *UnitType) Scan(src any) error           { return scanEnum(src, t, "unit_type") }

// BillingMode is how a unit is normally charged.
type BillingMode string

const (
	BillingDaily   BillingMode = "daily"
	BillingMonthly BillingMode = "monthly"
)

func (m BillingMode) Valid() bool { return m == BillingDaily || m == BillingMonthly }

func (m *BillingMode) UnmarshalJSON(b []byte) error { return decodeEnum(b, m, "billing_mode") }
func (m *BillingMode) Scan(src any) error           { return scanEnum(src, m, "billing_mode") }

// UnitStatus is the administrative status of a unit. Occupancy is not an
// administrative status; it is derived from the active stay.
type UnitStatus string

const (
	UnitActive      UnitStatus = "active"
	UnitMaintenance UnitStatus = "maintenance"
)

func (s UnitStatus) Valid() bool { return s == UnitActive || s == UnitMaintenance }

func (s *UnitStatus) UnmarshalJSON(b []byte) error { return decodeEnum(b, s, "status") }
func (s *UnitStatus) Scan(src any) error           { return scanEnum(src, s, "status") }

// GuestSource is the channel a guest came through.
type GuestSource string

const (
	SourceSukha    GuestSource = "sukha"
	SourceAyursiha GuestSource = "ayursiha"
)

func (g GuestSource) Valid() bool { return g == SourceSukha || g == SourceAyursiha }

func (g *GuestSource) UnmarshalJSON(b []byte) error { return decodeEnum(b, g, "guest_source") }
func (g *GuestSource) Scan(src any) error           { return scanEnum(src, g, "guest_source") }

// StayType is the billing term of a stay.
type StayType string

const (
	StayDaily   StayType = "daily"
	StayMonthly StayType = "monthly"
	StayYearly  StayType = "yearly"
)

func (t StayType) Valid() bool { return t == StayDaily || t == StayMonthly || t == StayYearly }

// Term reports whether the stay is billed by months (monthly or yearly).
func (t StayType) Term() bool { return t == StayMonthly || t == StayYearly }

func (t *StayType) UnmarshalJSON(b []byte) error { return decodeEnum(b, t, "stay_type") }
func (t *StayType) Scan(src any) error           { return scanEnum(src, t, "stay_type") }

// StayStatus tracks whether a stay is still occupying its unit.
type StayStatus string

const (
	StayActive    StayStatus = "active"
	StayCompleted StayStatus = "completed"
)

func (s StayStatus) Valid() bool { return s == StayActive || s == StayCompleted }

func (s *StayStatus) UnmarshalJSON(b []byte) error { return decodeEnum(b, s, "status") }
func (s *StayStatus) Scan(src any) error           { return scanEnum(src, s, "status") }

// Role is the single canonical staff role enumeration used by the access
// guard.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleOwner        Role = "owner"
	RoleManager      Role = "manager"
	RoleReception    Role = "reception"
	RoleHousekeeping Role = "housekeeping"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleOwner, RoleManager, RoleReception, RoleHousekeeping}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

func (r *Role) UnmarshalJSON(b []byte) error { return decodeEnum(b, r, "role") }
func (r *Role) Scan(src any) error           { return scanEnum(src, r, "role") }

type enum interface {
	~string
	Valid() bool
}

func decodeEnum[T enum](b []byte, dst *T, field string) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	v := T(s)
	if !v.Valid() {
		return fmt.Errorf("%s: unknown value %q", field, s)
	}
	*dst = v
	return nil
}

func scanEnum[T enum](src any, dst *T, field string) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("%s: cannot scan %T", field, src)
	}
	val := T(s)
	if !val.Valid() {
		return fmt.Errorf("%s: unknown value %q in store", field, s)
	}
	*dst = val
	return nil
}
