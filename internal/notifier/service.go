// Package notifier delivers customer push notifications off the request path:
// it consumes the order event stream and forwards status changes to the
// notification service. A send failure is logged and dropped; a missed push is
// tolerable, a redelivered one is noise.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/notify"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notifier").Logger()

type Service struct {
	Notify notify.Service
	Redis  *redis.Client
}

// HandleOrderEvent is the consumer handler for order.events. Only status
// changes for known customers produce a push; everything else is committed
// and skipped.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventStatusChanged {
		return nil
	}

	// dedup per event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		return nil // guest order, nobody to push to
	}

	msg := notify.Message{
		Title: "Order " + p.Number,
		Body:  statusMessage(p.Status),
		Data:  map[string]string{"order_id": p.OrderID, "status": string(p.Status)},
	}
	if err := s.Notify.SendToUser(ctx, p.UserID, msg); err != nil {
		logger.Warn().Err(err).Str("order_id", p.OrderID).Str("user_id", p.UserID).Msg("notification failed")
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func statusMessage(s orders.Status) string {
	switch s {
	case orders.StatusConfirmed:
		return "Your order is confirmed."
	case orders.StatusPreparing:
		return "Your order is being prepared."
	case orders.StatusReady:
		return "Your order is ready for pickup!"
	case orders.StatusCompleted:
		return "Thanks for your order. See you next time!"
	case orders.StatusCancelled:
		return "Your order was cancelled."
	default:
		return "Your order status changed."
	}
}
