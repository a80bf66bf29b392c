package model

import "time"

// DaysPerPlannedMonth is the month length used to estimate the checkout of
// monthly and yearly stays.
const DaysPerPlannedMonth = 30

// DefaultYearlyMonths is the planned term given to a yearly stay created
// without one.
const DefaultYearlyMonths = 12

// Stay links a guest or tenant to a unit. A stay is created active by
// check-in, moves to completed on checkout and is never deleted.
//
// Fields:
//
//	ID              – stays.id
//	UnitID          – unit occupied by the stay
//	GuestName       – guest or tenant name
//	GuestSource     – sukha | ayursiha
//	StayType        – daily | monthly | yearly
//	CheckInDate     – first night
//	CheckOutDate    – required for daily stays, filled by checkout otherwise
//	PlannedMonths   – term of monthly/yearly stays
//	MonthlyDueDay   – day of month rent falls due
//	MonthlyRent     – rent per month
//	AdvanceAmount   – advance taken at check-in
//	AdvanceRefunded – whether the advance was returned
//	Status          – active | completed
//	CreatedAt       – set once at creation
type Stay struct {
	ID              uint64      `json:"id"`
	UnitID          uint64      `json:"unit_id"`
	GuestName       string      `json:"guest_name"`
	GuestSource     GuestSource `json:"guest_source"`
	StayType        StayType    `json:"stay_type"`
	CheckInDate     Date        `json:"check_in_date"`
	CheckOutDate    *Date       `json:"check_out_date"`
	PlannedMonths   *int        `json:"planned_months"`
	MonthlyDueDay   *int        `json:"monthly_due_day"`
	MonthlyRent     *float64    `json:"monthly_rent"`
	AdvanceAmount   *float64    `json:"advance_amount"`
	AdvanceRefunded bool        `json:"advance_refunded"`
	Status          StayStatus  `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// HasPlannedMonths reports whether a planned term is set. Zero counts as
// unset.
func (s Stay) HasPlannedMonths() bool {
	return s.PlannedMonths != nil && *s.PlannedMonths != 0
}

// EstimatedCheckout is check-in plus 30 days per planned month for monthly
// and yearly stays with a term, and the stored checkout date otherwise.
func (s Stay) EstimatedCheckout() *Date {
	if s.StayType.Term() && s.HasPlannedMonths() {
		d := s.CheckInDate.AddDays(DaysPerPlannedMonth * *s.PlannedMonths)
		return &d
	}
	return s.CheckOutDate
}
