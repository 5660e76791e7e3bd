// Package realtime fans order-status events out to subscribed connections.
// Delivery is best effort: no backlog, no replay. A reconnecting client must
// pull the order it cares about to reconcile.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const AdminTopic = "admin"

func OrderTopic(orderID string) string { return "order:" + orderID }

type StatusEvent struct {
	OrderID          string    `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Status           string    `json:"status"`
	EstimatedReadyAt time.Time `json:"estimated_ready_at"`
}

type Broadcaster interface {
	Publish(topic string, ev StatusEvent)
}

// Hub keeps topic subscriptions for this replica. Messages published to one
// topic reach a given connection in publish order (the single writePump per
// client preserves FIFO); there is no cross-topic ordering.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Client]struct{}
	log  zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*Client]struct{}),
		log:  log.With().Str("component", "realtime").Logger(),
	}
}

func (h *Hub) Subscribe(c *Client, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = make(map[*Client]struct{})
		}
		h.subs[t][c] = struct{}{}
		c.topics = append(c.topics, t)
	}
}

func (h *Hub) unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range c.topics {
		if set, ok := h.subs[t]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, t)
			}
		}
	}
}

func (h *Hub) Publish(topic string, ev StatusEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[topic] {
		select {
		case c.send <- b:
		default:
			// slow consumer: drop, never block the publisher
			h.log.Warn().Str("topic", topic).Msg("dropping event for slow subscriber")
		}
	}
}

// Subscribers reports the current subscription count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
