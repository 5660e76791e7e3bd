package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/lifecycle"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/payments"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

var whLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "webhook").Logger()

type WebhookHandler struct {
	Manager *lifecycle.Manager
	Redis   *redis.Client
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.paymentWebhook)
}

// paymentWebhook is idempotent per intent_id+type: the gateway retries until
// it sees 2xx, and a second delivery of the same terminal outcome is a no-op.
func (h *WebhookHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var ev payments.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}
	if ev.IntentID == "" || ev.Metadata.OrderID == "" {
		writeError(w, &orders.ValidationError{Msg: "missing intent_id or order_id"})
		return
	}
	if ev.Type != payments.WebhookSucceeded && ev.Type != payments.WebhookFailed {
		writeError(w, &orders.ValidationError{Msg: fmt.Sprintf("unknown event type %q", ev.Type)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dkey := fmt.Sprintf(redisx.KeyWebhook, ev.IntentID, ev.Type)
	if ok, _ := redisx.Exists(ctx, h.Redis, dkey); ok {
		whLogger.Info().Str("intent_id", ev.IntentID).Str("type", ev.Type).Msg("duplicate webhook, ignoring")
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	if err := h.Manager.HandlePaymentEvent(ctx, ev); err != nil {
		// no dedup mark on failure; the gateway retry gets another chance
		writeError(w, err)
		return
	}

	_ = h.Redis.Set(ctx, dkey, ev.Metadata.OrderID, redisx.TTLWebhook).Err()
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
