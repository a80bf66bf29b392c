// Package queue defines the stay lifecycle events exchanged over RabbitMQ
// and the background consumer that records them.
package queue

// Queue names. Each event kind has its own durable queue.
const (
	QueueCheckedIn  = "stay.checked_in"
	QueueCheckedOut = "stay.checked_out"
)

// StayEvent is published after a check-in or checkout commits. It carries
// enough for downstream consumers to log or notify without reading the
// database.
type StayEvent struct {
	Kind              string `json:"kind"`
	StayID            uint64 `json:"stay_id"`
	UnitID            uint64 `json:"unit_id"`
	UnitName          string `json:"unit_name,omitempty"`
	GuestName         string `json:"guest_name"`
	GuestSource       string `json:"guest_source"`
	StayType          string `json:"stay_type"`
	CheckInDate       string `json:"check_in_date"`
	CheckOutDate      string `json:"check_out_date,omitempty"`
	EstimatedCheckout string `json:"estimated_checkout,omitempty"`
	OccurredAt        string `json:"occurred_at"`
}
