package orders

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrNotFound = errors.New("order not found")

// ValidationError: malformed cart or customer. Not retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Shortfall describes one ingredient that could not cover a reservation.
type Shortfall struct {
	IngredientID string `json:"ingredient_id"`
	Required     int    `json:"required"`
	Available    int    `json:"available"`
}

// InsufficientStockError carries every short ingredient, not just the first,
// so the client can adjust the whole cart in one round trip. The reservation
// that produced it left stock completely unchanged.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s: required %d, available %d", s.IngredientID, s.Required, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// AuthorizationError: wrong role or not the order's owner. Never retried.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return "not authorized: " + e.Msg }

// ConflictError: optimistic-concurrency loss. Caller should refetch and retry.
type ConflictError struct {
	OrderID string
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s was updated concurrently (version %d is stale)", e.OrderID, e.Version)
}

// PaymentError: gateway declined. The order and its reservation stay intact.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string { return "payment: " + e.Reason }

func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		se *InsufficientStockError
		ae *AuthorizationError
		ce *ConflictError
		pe *PaymentError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusConflict
	case errors.As(err, &ae):
		return http.StatusForbidden
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &pe):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode is the machine-readable discriminator in JSON error bodies.
func ErrorCode(err error) string {
	var (
		ve *ValidationError
		se *InsufficientStockError
		ae *AuthorizationError
		ce *ConflictError
		pe *PaymentError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &se):
		return "insufficient_stock"
	case errors.As(err, &ae):
		return "forbidden"
	case errors.As(err, &ce):
		return "conflict"
	case errors.As(err, &pe):
		return "payment_failed"
	default:
		return "internal"
	}
}
