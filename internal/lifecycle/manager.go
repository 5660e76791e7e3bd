// Package lifecycle orchestrates order creation, the status state machine,
// and the side effects that hang off terminal transitions.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/loyalty"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/payments"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/pricing"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/realtime"
)

// EventSink is the slice of the kafka producer the manager publishes through.
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Deps struct {
	Store       orders.Store
	Ledger      inventory.Ledger
	Catalog     inventory.Catalog
	Gateway     payments.Gateway
	Loyalty     loyalty.Ledger
	Broadcaster realtime.Broadcaster
	Events      EventSink // order.events topic
	Finalized   EventSink // order.finalized topic
	Service     string    // producer name on event envelopes
	TaxRateBps  int
	Currency    string
	Logger      zerolog.Logger
}

type Manager struct {
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps: deps,
		log:  deps.Logger.With().Str("component", "lifecycle").Logger(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type CartItem struct {
	ProductID      string            `json:"product_id"`
	Qty            int               `json:"qty"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type CreateInput struct {
	ExternalID    string
	Customer      orders.Customer
	Items         []CartItem
	Discount      pricing.Discount
	TipCents      int
	PaymentMethod string // "card" authorizes synchronously; anything else defers to the counter
	IsTestOrder   bool
}

type CreateResult struct {
	Order        *orders.Order
	ClientSecret string
	Idempotent   bool
}

// Create reserves stock, prices the cart, and persists the order. Reservation
// and creation are all-or-nothing: an InsufficientStockError leaves no
// persisted state at all, and a persistence failure releases the reservation.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	if in.ExternalID != "" {
		if existing, err := m.deps.Store.GetByExternalID(ctx, in.ExternalID); err == nil {
			return &CreateResult{Order: existing, Idempotent: true}, nil
		}
	}

	orderID := uuid.NewString()

	// snapshot items and expand recipes
	var (
		items       []orders.Item
		lines       []inventory.Line
		priceLines  []pricing.Line
		prepMinutes int
	)
	for _, ci := range in.Items {
		p, err := m.deps.Catalog.Product(ctx, ci.ProductID)
		if err != nil {
			return nil, &orders.ValidationError{Msg: err.Error()}
		}
		items = append(items, orders.Item{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Qty:            ci.Qty,
			UnitPriceCents: p.PriceCents,
			Customizations: ci.Customizations,
		})
		priceLines = append(priceLines, pricing.Line{Qty: ci.Qty, UnitPriceCents: p.PriceCents})
		for _, rl := range p.Recipe {
			lines = append(lines, inventory.Line{IngredientID: rl.IngredientID, Qty: rl.Qty * ci.Qty})
		}
		if p.PrepMinutes > prepMinutes {
			prepMinutes = p.PrepMinutes
		}
	}

	reservationID, err := m.deps.Ledger.Reserve(ctx, orderID, inventory.AggregateLines(lines))
	if err != nil {
		m.publishStockRejected(in.ExternalID, err)
		return nil, err
	}

	quote := pricing.Compute(priceLines, in.Discount, m.deps.TaxRateBps, in.TipCents)

	now := m.now()
	deferred := in.PaymentMethod != "card"
	o := &orders.Order{
		ID:         orderID,
		Number:     newOrderNumber(now),
		ExternalID: in.ExternalID,
		Customer:   in.Customer,
		Items:      items,
		Pricing: orders.Pricing{
			SubtotalCents: quote.SubtotalCents,
			DiscountCents: quote.DiscountCents,
			TaxCents:      quote.TaxCents,
			TipCents:      quote.TipCents,
			TotalCents:    quote.TotalCents,
		},
		Payment:       orders.Payment{Status: orders.PaymentPending, Method: in.PaymentMethod},
		Status:        orders.StatusPending,
		Fulfillment:   orders.Fulfillment{EstimatedReadyAt: now.Add(time.Duration(5+prepMinutes) * time.Minute)},
		ReservationID: reservationID,
		IsTestOrder:   in.IsTestOrder,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// zero total or deferred payment: nothing to authorize, confirm directly
	if quote.TotalCents == 0 {
		o.Status = orders.StatusConfirmed
		o.Payment.Status = orders.PaymentCompleted
	} else if deferred {
		o.Status = orders.StatusConfirmed
	}

	if err := m.deps.Store.Create(ctx, o); err != nil {
		if relErr := m.deps.Ledger.Release(ctx, reservationID); relErr != nil {
			m.log.Error().Err(relErr).Str("reservation_id", reservationID).Msg("release after failed create")
		}
		return nil, err
	}

	res := &CreateResult{Order: o}
	if !deferred && quote.TotalCents > 0 {
		intent, err := m.deps.Gateway.CreateIntent(ctx, quote.TotalCents, m.deps.Currency, in.Customer.UserID)
		if err != nil {
			// the order and its reservation stay; cancellation is the only
			// path that releases stock after a payment failure
			m.log.Warn().Err(err).Str("order_id", o.ID).Msg("payment intent failed")
			if updated, rerr := m.deps.Store.RecordPayment(ctx, o.ID, orders.PaymentFailed, ""); rerr != nil {
				m.log.Error().Err(rerr).Str("order_id", o.ID).Msg("record failed payment")
			} else {
				res.Order = updated
			}
		} else {
			res.ClientSecret = intent.ClientSecret
			if updated, rerr := m.deps.Store.RecordPayment(ctx, o.ID, orders.PaymentProcessing, intent.IntentID); rerr != nil {
				m.log.Error().Err(rerr).Str("order_id", o.ID).Str("intent_id", intent.IntentID).Msg("record payment intent")
			} else {
				res.Order = updated
			}
		}
	}

	m.publishCreated(res.Order)
	m.broadcast(res.Order)
	return res, nil
}

// Transition drives the state machine: authorization, legality, versioned
// write, then side effects and fan-out strictly after the write commits.
func (m *Manager) Transition(ctx context.Context, orderID string, next orders.Status, actor Actor) (*orders.Order, error) {
	return m.transition(ctx, orderID, next, actor, "")
}

// Cancel is Transition to cancelled with a reason recorded on the audit event.
func (m *Manager) Cancel(ctx context.Context, orderID, reason string, actor Actor) (*orders.Order, error) {
	return m.transition(ctx, orderID, orders.StatusCancelled, actor, reason)
}

func (m *Manager) transition(ctx context.Context, orderID string, next orders.Status, actor Actor, reason string) (*orders.Order, error) {
	if !orders.ValidStatus(next) {
		return nil, &orders.ValidationError{Msg: fmt.Sprintf("unknown status %q", next)}
	}

	o, err := m.deps.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, o, next); err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, next) {
		return nil, &orders.ValidationError{Msg: fmt.Sprintf("cannot transition %s -> %s", o.Status, next)}
	}

	updated, err := m.deps.Store.UpdateStatus(ctx, orderID, next, o.Version)
	if err != nil {
		return nil, err
	}

	switch next {
	case orders.StatusCancelled:
		// release synchronously; a failure is logged and reconciled out of
		// band, the customer-visible cancellation stands
		if updated.ReservationID != "" {
			if err := m.deps.Ledger.Release(ctx, updated.ReservationID); err != nil {
				m.log.Error().Err(err).
					Str("order_id", orderID).
					Str("reservation_id", updated.ReservationID).
					Msg("release on cancel failed, leaving to reconciliation")
			}
		}
	case orders.StatusCompleted:
		m.awardLoyalty(ctx, updated)
	}

	m.publishStatusChanged(updated, reason)
	m.broadcast(updated)
	return updated, nil
}

// awardLoyalty fires at most once per order, ever: the loyalty_awarded flag
// flip is the gate, and only the caller that wins the flip talks to the
// ledger. A ledger failure after the flip is logged for manual reconciliation;
// under-award is correctable by hand, double-award is a financial leak.
func (m *Manager) awardLoyalty(ctx context.Context, o *orders.Order) {
	if o.Customer.UserID == "" || o.IsTestOrder {
		return
	}
	won, err := m.deps.Store.ClaimLoyaltyAward(ctx, o.ID)
	if err != nil {
		m.log.Error().Err(err).Str("order_id", o.ID).Msg("claim loyalty award")
		return
	}
	if !won {
		return
	}
	// mirror the committed flip on the snapshot that gets published, cached,
	// and returned to the caller
	o.LoyaltyAwarded = true
	o.Version++
	award, err := m.deps.Loyalty.Award(ctx, o.Customer.UserID, loyalty.AwardRef{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		TotalCents:  o.Pricing.TotalCents,
	})
	if err != nil {
		m.log.Error().Err(err).Str("order_id", o.ID).Msg("loyalty award failed after flag set, needs manual reconciliation")
		return
	}
	m.log.Info().Str("order_id", o.ID).Int("points", award.PointsEarned).Bool("tier_upgraded", award.TierUpgraded).Msg("loyalty awarded")
}

// HandlePaymentEvent processes one gateway webhook. The caller dedups per
// intent_id+type; this method additionally refuses to revive an order that is
// no longer payable while still recording the outcome for audit.
func (m *Manager) HandlePaymentEvent(ctx context.Context, ev payments.WebhookEvent) error {
	o, err := m.deps.Store.Get(ctx, ev.Metadata.OrderID)
	if err != nil {
		return err
	}

	status := orders.PaymentFailed
	if ev.Type == payments.WebhookSucceeded {
		status = orders.PaymentCompleted
	}
	updated, err := m.deps.Store.RecordPayment(ctx, o.ID, status, ev.IntentID)
	if err != nil {
		return err
	}
	m.publishPaymentRecorded(updated, ev.IntentID)

	if ev.Type != payments.WebhookSucceeded {
		return nil
	}
	if !updated.Payable() {
		m.log.Info().Str("order_id", o.ID).Str("status", string(updated.Status)).Msg("payment succeeded for non-payable order, recorded only")
		return nil
	}
	if _, err := m.transition(ctx, o.ID, orders.StatusConfirmed, Actor{Role: RoleSystem}, ""); err != nil {
		m.log.Warn().Err(err).Str("order_id", o.ID).Msg("confirm after payment")
	}
	return nil
}

// ---- event publishing (always after the write commits) ----

func (m *Manager) envelope(eventType, orderID string, payload any) []byte {
	return kafkax.MustMarshal(orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    m.now(),
		Producer:      m.deps.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	})
}

func (m *Manager) publishCreated(o *orders.Order) {
	b := m.envelope(orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:    o.ID,
		Number:     o.Number,
		ExternalID: o.ExternalID,
		UserID:     o.Customer.UserID,
		Status:     o.Status,
		TotalCents: o.Pricing.TotalCents,
	})
	m.deps.Events.Publish(orders.PartitionKey(o.ID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)})
}

func (m *Manager) publishStatusChanged(o *orders.Order, reason string) {
	b := m.envelope(orders.EventStatusChanged, o.ID, orders.StatusChangedPayload{
		OrderID:          o.ID,
		Number:           o.Number,
		UserID:           o.Customer.UserID,
		Status:           o.Status,
		EstimatedReadyAt: o.Fulfillment.EstimatedReadyAt,
	})
	m.deps.Events.Publish(orders.PartitionKey(o.ID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStatusChanged)})

	if orders.IsTerminal(o.Status) {
		fb := m.envelope(orders.EventOrderFinalized, o.ID, orders.OrderFinalizedPayload{
			OrderID:       o.ID,
			Number:        o.Number,
			UserID:        o.Customer.UserID,
			FinalStatus:   o.Status,
			Reason:        reason,
			TotalCents:    o.Pricing.TotalCents,
			ReservationID: o.ReservationID,
		})
		m.deps.Finalized.Publish(orders.PartitionKey(o.ID), fb,
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderFinalized)})
	}
}

func (m *Manager) publishPaymentRecorded(o *orders.Order, intentID string) {
	b := m.envelope(orders.EventPaymentRecorded, o.ID, orders.PaymentRecordedPayload{
		OrderID:  o.ID,
		IntentID: intentID,
		Status:   o.Payment.Status,
	})
	m.deps.Events.Publish(orders.PartitionKey(o.ID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentRecorded)})
}

func (m *Manager) publishStockRejected(externalID string, err error) {
	se, ok := err.(*orders.InsufficientStockError)
	if !ok {
		return
	}
	b := m.envelope(orders.EventStockRejected, externalID, orders.StockRejectedPayload{
		ExternalID: externalID,
		Reason:     "OUT_OF_STOCK",
		Shortfalls: se.Shortfalls,
	})
	m.deps.Events.Publish([]byte(externalID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockRejected)})
}

func (m *Manager) broadcast(o *orders.Order) {
	ev := realtime.StatusEvent{
		OrderID:          o.ID,
		OrderNumber:      o.Number,
		Status:           string(o.Status),
		EstimatedReadyAt: o.Fulfillment.EstimatedReadyAt,
	}
	m.deps.Broadcaster.Publish(realtime.OrderTopic(o.ID), ev)
	m.deps.Broadcaster.Publish(realtime.AdminTopic, ev)
}

func validateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return &orders.ValidationError{Msg: "cart is empty"}
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return &orders.ValidationError{Msg: "item missing product id"}
		}
		if it.Qty <= 0 {
			return &orders.ValidationError{Msg: fmt.Sprintf("invalid qty for product %s", it.ProductID)}
		}
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return &orders.ValidationError{Msg: "customer name is required"}
	}
	if strings.TrimSpace(in.Customer.Email) == "" {
		return &orders.ValidationError{Msg: "customer email is required"}
	}
	return nil
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:4]
	return "ORD-" + now.Format("20060102") + "-" + suffix
}
