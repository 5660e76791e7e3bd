// Package notify wraps the external push-notification service. Delivery is
// fire-and-forget: failures are logged by callers, never surfaced to users.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"message"`
	Data  map[string]string `json:"data,omitempty"`
}

type Service interface {
	SendToUser(ctx context.Context, userID string, msg Message) error
}

type HTTPService struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPService(baseURL string) *HTTPService {
	return &HTTPService{BaseURL: baseURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPService) SendToUser(ctx context.Context, userID string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v1/users/%s/notifications", s.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
