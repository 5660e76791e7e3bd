package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

const orderColumns = `id, number, external_id, customer, items, pricing,
	payment_status, payment_method, payment_intent_id, status,
	estimated_ready_at, reservation_id, loyalty_awarded, is_test_order,
	version, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	pricing, err := json.Marshal(o.Pricing)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO orders(id, number, external_id, customer, items, pricing,
			payment_status, payment_method, payment_intent_id, status,
			estimated_ready_at, reservation_id, loyalty_awarded, is_test_order,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		o.ID, o.Number, o.ExternalID, customer, items, pricing,
		o.Payment.Status, o.Payment.Method, o.Payment.IntentID, o.Status,
		o.Fulfillment.EstimatedReadyAt, nullable(o.ReservationID), o.LoyaltyAwarded, o.IsTestOrder,
		o.Version, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (*Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	return scanOrder(row)
}

func (s *PGStore) GetByExternalID(ctx context.Context, externalID string) (*Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_id=$1`, externalID)
	return scanOrder(row)
}

// UpdateStatus is the optimistic-concurrency write: the row only changes when
// the caller still holds the current version. A lost race is reported as
// *ConflictError so staff UIs can refetch and retry.
func (s *PGStore) UpdateStatus(ctx context.Context, id string, next Status, expectedVersion int64) (*Order, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET status=$2, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$3`,
		id, next, expectedVersion,
	)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		// distinguish a missing order from a stale version
		var exists bool
		if err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, &ConflictError{OrderID: id, Version: expectedVersion}
	}
	return s.Get(ctx, id)
}

func (s *PGStore) RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) (*Order, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$2, payment_intent_id=$3, version=version+1, updated_at=now()
		WHERE id=$1`,
		id, status, intentID,
	)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PGStore) ClaimLoyaltyAward(ctx context.Context, id string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET loyalty_awarded=true, version=version+1, updated_at=now()
		WHERE id=$1 AND loyalty_awarded=false`,
		id,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                        Order
		customer, items, pricing []byte
		reservationID            *string
		estimatedReadyAt         time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.ExternalID, &customer, &items, &pricing,
		&o.Payment.Status, &o.Payment.Method, &o.Payment.IntentID, &o.Status,
		&estimatedReadyAt, &reservationID, &o.LoyaltyAwarded, &o.IsTestOrder,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(pricing, &o.Pricing); err != nil {
		return nil, fmt.Errorf("decode pricing: %w", err)
	}
	o.Fulfillment.EstimatedReadyAt = estimatedReadyAt
	if reservationID != nil {
		o.ReservationID = *reservationID
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
