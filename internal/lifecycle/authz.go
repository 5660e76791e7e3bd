package lifecycle

import (
	"fmt"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system" // webhook / internal callers
)

type Actor struct {
	ID   string
	Role Role
}

// authorize is the single authorization policy for status transitions:
// staff, admin, and system drive the pipeline; a customer may only cancel
// their own order.
func authorize(actor Actor, o *orders.Order, next orders.Status) error {
	switch actor.Role {
	case RoleStaff, RoleAdmin, RoleSystem:
		return nil
	case RoleCustomer:
		if next != orders.StatusCancelled {
			return &orders.AuthorizationError{Msg: fmt.Sprintf("customers cannot set status %q", next)}
		}
		if actor.ID == "" || actor.ID != o.Customer.UserID {
			return &orders.AuthorizationError{Msg: "not the order owner"}
		}
		return nil
	default:
		return &orders.AuthorizationError{Msg: fmt.Sprintf("unknown role %q", actor.Role)}
	}
}
