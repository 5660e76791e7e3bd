package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/lifecycle"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/pricing"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/realtime"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

type OrdersHandler struct {
	Manager *lifecycle.Manager
	Store   orders.Store
	Catalog inventory.Catalog
	Redis   *redis.Client
	Hub     *realtime.Hub
}

type CreateOrderReq struct {
	ExternalID string               `json:"external_id"`
	Customer   orders.Customer      `json:"customer"`
	Items      []lifecycle.CartItem `json:"items"`

	DiscountBps   int    `json:"discount_bps,omitempty"`
	DiscountCents int    `json:"discount_cents,omitempty"`
	TipCents      int    `json:"tip_cents,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"` // "card" or counter payment
	IsTestOrder   bool   `json:"is_test_order,omitempty"`
}

type CreateOrderResp struct {
	Order        *orders.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
	Idempotent   bool          `json:"idempotent"`
}

type SetStatusReq struct {
	Status orders.Status `json:"status"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/menu", h.listMenu)
	r.Get("/ws", h.Hub.ServeWS)
}

// actor identity arrives from the edge gateway via trusted headers;
// authentication itself lives outside this service.
func actorFrom(r *http.Request) lifecycle.Actor {
	role := lifecycle.Role(r.Header.Get("X-User-Role"))
	switch role {
	case lifecycle.RoleStaff, lifecycle.RoleAdmin:
	default:
		role = lifecycle.RoleCustomer
	}
	return lifecycle.Actor{ID: r.Header.Get("X-User-ID"), Role: role}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// replay shortcut: a retried create with a known external_id gets the
	// original order back without touching the manager
	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
			if o, err := h.Store.Get(ctx, id); err == nil {
				writeJSON(w, http.StatusOK, CreateOrderResp{Order: o, Idempotent: true})
				return
			}
		}
	}

	res, err := h.Manager.Create(ctx, lifecycle.CreateInput{
		ExternalID:    req.ExternalID,
		Customer:      req.Customer,
		Items:         req.Items,
		Discount:      pricing.Discount{PercentBps: req.DiscountBps, AmountCents: req.DiscountCents},
		TipCents:      req.TipCents,
		PaymentMethod: req.PaymentMethod,
		IsTestOrder:   req.IsTestOrder,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, res.Order.ID, redisx.TTLIdempotency).Err()
	}
	h.cacheOrder(ctx, res.Order)

	code := http.StatusCreated
	if res.Idempotent {
		code = http.StatusOK
	}
	writeJSON(w, code, CreateOrderResp{
		Order:        res.Order,
		ClientSecret: res.ClientSecret,
		Idempotent:   res.Idempotent,
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, &orders.ValidationError{Msg: "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB is the truth
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Store.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req SetStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.Transition(ctx, orderID, req.Status, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req CancelReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.Cancel(ctx, orderID, req.Reason, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o *orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
