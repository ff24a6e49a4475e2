package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced      = "OrderPlaced"
	EventMovementRecorded = "MovementRecorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string     `json:"order_id"`
	Number     string     `json:"number"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	Currency   string     `json:"currency"`
	TotalCents int64      `json:"total_cents"`
	Items      []ItemLine `json:"items"`
}

type ItemLine struct {
	VariantID      string `json:"variant_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type MovementRecordedPayload struct {
	MovementID string            `json:"movement_id"`
	VariantID  string            `json:"variant_id"`
	Delta      int               `json:"delta"`
	Reason     string            `json:"reason"`
	OrderID    string            `json:"order_id"`
	UserID     string            `json:"user_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
