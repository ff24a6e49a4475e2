package orders

import "strings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPlaced    Status = "placed"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusPlaced:    true,
	StatusPaid:      true,
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

// ParseStatus normalizes case-insensitive input to a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, validStatuses[st]
}

// Mode is the inventory effect of creating an order in a given status.
type Mode string

const (
	ModeReserve  Mode = "reserve"
	ModePurchase Mode = "purchase"
	ModeNone     Mode = "none"
)

var modeByStatus = map[Status]Mode{
	StatusPending:   ModeReserve,
	StatusPlaced:    ModeReserve,
	StatusPaid:      ModePurchase,
	StatusShipped:   ModePurchase,
	StatusDelivered: ModePurchase,
	StatusCancelled: ModeNone,
	StatusRefunded:  ModeNone,
}

func ModeForStatus(s Status) Mode {
	if m, ok := modeByStatus[s]; ok {
		return m
	}
	return ModeNone
}

// reasonByMode maps a mode to its movement audit reason. ModeNone has no
// reason and emits no movement rows.
var reasonByMode = map[Mode]string{
	ModeReserve:  "reserve",
	ModePurchase: "purchase",
}

func MovementReason(m Mode) (string, bool) {
	r, ok := reasonByMode[m]
	return r, ok
}
