package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error      string             `json:"error"`
	Code       string             `json:"code"`
	Shortfalls []orders.Shortfall `json:"shortfalls,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Code: orders.ErrorCode(err)}
	var se *orders.InsufficientStockError
	if errors.As(err, &se) {
		body.Shortfalls = se.Shortfalls
	}
	writeJSON(w, orders.HTTPStatus(err), body)
}
