package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/lifecycle"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/realtime"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

type nopSink struct{}

func (nopSink) Publish(key, value []byte, headers ...kafkago.Header) {}

func newTestRouter(t *testing.T) (*chi.Mux, *inventory.MemoryLedger) {
	t.Helper()
	store := orders.NewMemoryStore()
	ledger := inventory.NewMemoryLedger(
		inventory.Item{ID: "milk", QuantityInStock: 1000, IsAvailable: true},
	)
	catalog := inventory.NewMemoryCatalog(
		inventory.Product{ID: "latte", Name: "Latte", PriceCents: 475, PrepMinutes: 4, Recipe: []inventory.Line{
			{IngredientID: "milk", Qty: 200},
		}},
	)
	hub := realtime.NewHub(zerolog.Nop())
	manager := lifecycle.NewManager(lifecycle.Deps{
		Store:       store,
		Ledger:      ledger,
		Catalog:     catalog,
		Broadcaster: hub,
		Events:      nopSink{},
		Finalized:   nopSink{},
		Service:     "fulfillment-test",
		TaxRateBps:  875,
		Currency:    "usd",
		Logger:      zerolog.Nop(),
	})
	h := &OrdersHandler{
		Manager: manager,
		Store:   store,
		Catalog: catalog,
		Redis:   redisx.New("127.0.0.1:1"), // unreachable: cache and shortcut degrade
		Hub:     hub,
	}
	r := chi.NewRouter()
	h.Register(r)
	return r, ledger
}

func postOrder(t *testing.T, r *chi.Mux, body CreateOrderReq) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderReplayReturnsOriginal(t *testing.T) {
	r, ledger := newTestRouter(t)

	body := CreateOrderReq{
		ExternalID:    "ext-9",
		Customer:      orders.Customer{UserID: "u1", Name: "Ayu", Email: "ayu@example.com"},
		Items:         []lifecycle.CartItem{{ProductID: "latte", Qty: 1}},
		PaymentMethod: "counter",
	}

	first := postOrder(t, r, body)
	require.Equal(t, http.StatusCreated, first.Code)
	var created CreateOrderResp
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &created))
	assert.False(t, created.Idempotent)

	second := postOrder(t, r, body)
	require.Equal(t, http.StatusOK, second.Code)
	var replayed CreateOrderResp
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &replayed))
	assert.True(t, replayed.Idempotent)
	assert.Equal(t, created.Order.ID, replayed.Order.ID)

	// one reservation for the two requests
	assert.Equal(t, 800, ledger.Stock("milk"))
}

func TestCreateOrderRejectsBadJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
