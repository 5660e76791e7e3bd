package orders

import "time"

type Customer struct {
	UserID string `json:"user_id,omitempty"` // empty for guest checkout
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Item is snapshotted at creation time. Name and price are copied from the
// catalog so later menu edits never change what an existing order says.
type Item struct {
	ProductID      string            `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Qty            int               `json:"qty"`
	UnitPriceCents int               `json:"unit_price_cents"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type Pricing struct {
	SubtotalCents int `json:"subtotal_cents"`
	DiscountCents int `json:"discount_cents"`
	TaxCents      int `json:"tax_cents"`
	TipCents      int `json:"tip_cents"`
	TotalCents    int `json:"total_cents"`
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

type Payment struct {
	Status   PaymentStatus `json:"status"`
	Method   string        `json:"method,omitempty"`
	IntentID string        `json:"intent_id,omitempty"` // provider reference
}

type Fulfillment struct {
	EstimatedReadyAt time.Time `json:"estimated_ready_at"`
}

type Order struct {
	ID         string `json:"id"`
	Number     string `json:"number"`      // human readable, e.g. ORD-20250830-4F2A
	ExternalID string `json:"external_id"` // client-supplied idempotency key

	Customer Customer `json:"customer"`
	Items    []Item   `json:"items"`
	Pricing  Pricing  `json:"pricing"`
	Payment  Payment  `json:"payment"`
	Status   Status   `json:"status"`

	Fulfillment   Fulfillment `json:"fulfillment"`
	ReservationID string      `json:"reservation_id,omitempty"`

	LoyaltyAwarded bool `json:"loyalty_awarded"`
	IsTestOrder    bool `json:"is_test_order,omitempty"`

	Version   int64     `json:"version"` // optimistic concurrency
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payable reports whether a payment success may still promote the order.
// Terminal orders are never revived by a late gateway callback.
func (o *Order) Payable() bool {
	return o.Status == StatusPending
}
