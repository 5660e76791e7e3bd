package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated    = "OrderCreated"
	EventStatusChanged   = "OrderStatusChanged"
	EventStockRejected   = "StockRejected"
	EventPaymentRecorded = "PaymentRecorded"
	EventOrderFinalized  = "OrderFinalized"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "fulfillment-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload types per event ----

type OrderCreatedPayload struct {
	OrderID    string `json:"order_id"`
	Number     string `json:"number"`
	ExternalID string `json:"external_id"`
	UserID     string `json:"user_id,omitempty"`
	Status     Status `json:"status"`
	TotalCents int    `json:"total_cents"`
}

type StatusChangedPayload struct {
	OrderID          string    `json:"order_id"`
	Number           string    `json:"number"`
	UserID           string    `json:"user_id,omitempty"`
	Status           Status    `json:"status"`
	EstimatedReadyAt time.Time `json:"estimated_ready_at"`
}

type StockRejectedPayload struct {
	ExternalID string      `json:"external_id"`
	Reason     string      `json:"reason"` // OUT_OF_STOCK
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
}

type PaymentRecordedPayload struct {
	OrderID  string        `json:"order_id"`
	IntentID string        `json:"intent_id"`
	Status   PaymentStatus `json:"status"`
}

type OrderFinalizedPayload struct {
	OrderID       string `json:"order_id"`
	Number        string `json:"number"`
	UserID        string `json:"user_id,omitempty"`
	FinalStatus   Status `json:"final_status"` // completed | cancelled
	Reason        string `json:"reason,omitempty"`
	TotalCents    int    `json:"total_cents"`
	ReservationID string `json:"reservation_id,omitempty"`
}
