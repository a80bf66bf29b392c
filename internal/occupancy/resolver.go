// Package occupancy projects live unit status from a unit and its active
// stay. Everything here is pure: no I/O, no clock.
package occupancy

import (
	"fmt"
	"strings"

	"github.com/iliyamo/sukha-pms/internal/model"
)

// Status is the projected occupancy of a unit.
type Status string

const (
	StatusVacant   Status = "vacant"
	StatusOccupied Status = "occupied"
	StatusMonthly  Status = "monthly"
	StatusYearly   Status = "yearly"
	StatusUnknown  Status = "unknown"
)

// Projection is the read-only view of a unit's occupancy.
type Projection struct {
	Status            Status             `json:"status"`
	Label             string             `json:"status_label"`
	GuestSource       *model.GuestSource `json:"guest_source"`
	EstimatedCheckout *model.Date        `json:"estimated_checkout"`
}

// Resolve combines a unit with its active stay, nil when the unit is vacant.
// The first matching rule wins.
func Resolve(_ model.Unit, stay *model.Stay) Projection {
	if stay == nil {
		return Projection{Status: StatusVacant, Label: "Vacant"}
	}
	src := stay.GuestSource
	switch stay.StayType {
	case model.StayDaily:
		return Projection{
			Status:            StatusOccupied,
			Label:             fmt.Sprintf("Occupied (%s)", capitalize(string(src))),
			GuestSource:       &src,
			EstimatedCheckout: stay.EstimatedCheckout(),
		}
	case model.StayMonthly:
		label := "Monthly Tenant"
		if stay.HasPlannedMonths() {
			label = fmt.Sprintf("Monthly Tenant (%d Months)", *stay.PlannedMonths)
		}
		return Projection{
			Status:            StatusMonthly,
			Label:             label,
			GuestSource:       &src,
			EstimatedCheckout: stay.EstimatedCheckout(),
		}
	case model.StayYearly:
		return Projection{
			Status:            StatusYearly,
			Label:             "Yearly Tenant",
			GuestSource:       &src,
			EstimatedCheckout: stay.EstimatedCheckout(),
		}
	}
	return Projection{Status: StatusUnknown, Label: "Unknown"}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ActiveByUnit indexes active stays by unit id.
func ActiveByUnit(stays []model.Stay) map[uint64]*model.Stay {
	out := make(map[uint64]*model.Stay, len(stays))
	for i := range stays {
		if stays[i].Status != model.StayActive {
			continue
		}
		out[stays[i].UnitID] = &stays[i]
	}
	return out
}

// Available returns the units not referenced by any active stay, keeping the
// order of units.
func Available(units []model.Unit, active []model.Stay) []model.Unit {
	occupied := ActiveByUnit(active)
	out := make([]model.Unit, 0, len(units))
	for _, u := range units {
		if _, taken := occupied[u.ID]; !taken {
			out = append(out, u)
		}
	}
	return out
}
