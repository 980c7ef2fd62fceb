// Package apperr is the error taxonomy of the settlement workflow. Every
// error that crosses a service boundary carries a Kind so handlers can map it
// to an HTTP status and callers can pick a retry policy (a gateway timeout is
// retryable, an explicit rejection is not).
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	// Validation: bad input shape/range, caller's fault.
	Validation Kind = iota
	// NotFound: missing listing/transaction/application.
	NotFound
	// Forbidden: actor is not allowed to act on this resource.
	Forbidden
	// Conflict: illegal state transition (e.g. refund of a non-completed
	// transaction, duplicate refund).
	Conflict
	// InvalidSignature: payment proof failed verification. Always rejected,
	// never logged-and-passed.
	InvalidSignature
	// InsufficientInventory: the conditional decrement failed. After a
	// captured payment this must reach the caller so a refund can be
	// triggered; it is never swallowed.
	InsufficientInventory
	// GatewayTimeout: the gateway call timed out; safe to retry order
	// creation, never a refund.
	GatewayTimeout
	// GatewayRejected: the gateway answered with an error; not retryable.
	GatewayRejected
	// Persistence: a store write failed after the external payment was
	// captured. Surfaced distinctly so operators can reconcile instead of
	// silently dropping a paid order.
	Persistence
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or (0, false) when err is not an apperr.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps an error to the status code the handlers return.
func HTTPStatus(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch k {
	case Validation, InvalidSignature:
		return fiber.StatusBadRequest
	case NotFound:
		return fiber.StatusNotFound
	case Forbidden:
		return fiber.StatusForbidden
	case Conflict, InsufficientInventory:
		return fiber.StatusConflict
	case GatewayTimeout:
		return fiber.StatusGatewayTimeout
	case GatewayRejected:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
