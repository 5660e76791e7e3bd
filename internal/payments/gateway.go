// Package payments wraps the external payment gateway. Only its external
// contract is modeled: intent creation plus the asynchronous webhook payload.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

const (
	WebhookSucceeded = "succeeded"
	WebhookFailed    = "failed"
)

type Intent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int, currency, customerRef string) (*Intent, error)
}

// WebhookEvent is the gateway's asynchronous callback. Delivery may be
// duplicated or arrive late; handlers must be idempotent per IntentID+Type.
type WebhookEvent struct {
	Type     string `json:"type"` // succeeded | failed
	IntentID string `json:"intent_id"`
	Metadata struct {
		OrderID string `json:"order_id"`
	} `json:"metadata"`
}

type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, amountCents int, currency, customerRef string) (*Intent, error) {
	body, err := json.Marshal(map[string]any{
		"amount":       amountCents,
		"currency":     currency,
		"customer_ref": customerRef,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, &orders.PaymentError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &orders.PaymentError{Reason: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
	}
	var in Intent
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}
