package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

// redis is deliberately unreachable: dedup degrades to best effort and the
// handler must still work off the idempotency of Release itself.
func newService(ledger inventory.Ledger) *Service {
	return &Service{Ledger: ledger, Redis: redisx.New("127.0.0.1:1")}
}

func finalizedMessage(t *testing.T, p orders.OrderFinalizedPayload) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderFinalized,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: p.OrderID,
		Payload:       kafkax.MustMarshal(p),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderFinalizedReleasesCancelled(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger(inventory.Item{ID: "milk", QuantityInStock: 100, IsAvailable: true})

	resID, err := ledger.Reserve(ctx, "o1", []inventory.Line{{IngredientID: "milk", Qty: 30}})
	require.NoError(t, err)
	require.Equal(t, 70, ledger.Stock("milk"))

	svc := newService(ledger)
	m := finalizedMessage(t, orders.OrderFinalizedPayload{
		OrderID: "o1", FinalStatus: orders.StatusCancelled, ReservationID: resID,
	})

	require.NoError(t, svc.HandleOrderFinalized(ctx, m))
	assert.Equal(t, 100, ledger.Stock("milk"))

	// replay of the same event does not inflate stock
	require.NoError(t, svc.HandleOrderFinalized(ctx, m))
	assert.Equal(t, 100, ledger.Stock("milk"))
}

func TestHandleOrderFinalizedIgnoresCompleted(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger(inventory.Item{ID: "milk", QuantityInStock: 100, IsAvailable: true})
	resID, err := ledger.Reserve(ctx, "o1", []inventory.Line{{IngredientID: "milk", Qty: 30}})
	require.NoError(t, err)

	svc := newService(ledger)
	m := finalizedMessage(t, orders.OrderFinalizedPayload{
		OrderID: "o1", FinalStatus: orders.StatusCompleted, ReservationID: resID,
	})
	require.NoError(t, svc.HandleOrderFinalized(ctx, m))

	// completed orders consumed their ingredients; nothing is restored
	assert.Equal(t, 70, ledger.Stock("milk"))
}

func TestHandleOrderFinalizedIgnoresOtherEventTypes(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger(inventory.Item{ID: "milk", QuantityInStock: 100, IsAvailable: true})
	svc := newService(ledger)

	env := orders.Envelope{
		EventID:   uuid.NewString(),
		EventType: orders.EventStatusChanged,
		Payload:   kafkax.MustMarshal(orders.StatusChangedPayload{OrderID: "o1"}),
	}
	require.NoError(t, svc.HandleOrderFinalized(ctx, kafkago.Message{Value: kafkax.MustMarshal(env)}))
	assert.Equal(t, 100, ledger.Stock("milk"))
}
