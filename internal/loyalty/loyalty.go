// Package loyalty wraps the external loyalty-point ledger. The caller owns
// the at-most-once guarantee: Award must only be invoked after winning the
// order's loyalty_awarded flip.
package loyalty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type AwardRef struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalCents  int    `json:"total_cents"`
}

type Award struct {
	PointsEarned int    `json:"points_earned"`
	NewTier      string `json:"new_tier"`
	TierUpgraded bool   `json:"tier_upgraded"`
}

type Ledger interface {
	Award(ctx context.Context, userID string, ref AwardRef) (*Award, error)
}

type HTTPLedger struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPLedger(baseURL string) *HTTPLedger {
	return &HTTPLedger{BaseURL: baseURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (l *HTTPLedger) Award(ctx context.Context, userID string, ref AwardRef) (*Award, error) {
	body, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/users/%s/awards", l.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("loyalty ledger returned %d", resp.StatusCode)
	}
	var a Award
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}
