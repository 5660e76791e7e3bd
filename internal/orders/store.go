package orders

import "context"

// Store persists the versioned Order aggregate. Every status write supplies
// the version it read; a stale version yields *ConflictError.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetByExternalID backs idempotent creation; returns ErrNotFound when the
	// external id was never seen.
	GetByExternalID(ctx context.Context, externalID string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, next Status, expectedVersion int64) (*Order, error)
	// RecordPayment updates the payment block unconditionally (audit trail for
	// late webhooks); it never touches the order status.
	RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) (*Order, error)
	// ClaimLoyaltyAward flips loyalty_awarded false->true atomically and
	// reports whether this caller won the flip. At most one caller ever does.
	ClaimLoyaltyAward(ctx context.Context, id string) (bool, error)
}
