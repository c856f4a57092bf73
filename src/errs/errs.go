// Package errs defines the error taxonomy shared by the engagement,
// connection and view services. Controllers translate kinds to HTTP
// statuses; everything that is not one of these kinds is a server error.
package errs

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindTransient    Kind = "transient"
)

// E carries a kind, a caller-facing message and an optional wrapped cause.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func NotFound(message string) error     { return &E{Kind: KindNotFound, Message: message} }
func Validation(message string) error   { return &E{Kind: KindValidation, Message: message} }
func Conflict(message string) error     { return &E{Kind: KindConflict, Message: message} }
func Unauthorized(message string) error { return &E{Kind: KindUnauthorized, Message: message} }

// Transient marks an error the caller may safely retry.
func Transient(message string, err error) error {
	return &E{Kind: KindTransient, Message: message, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the caller-facing message, or a generic one for
// errors outside the taxonomy.
func Message(err error) string {
	var e *E
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error"
}

// Status maps an error to the HTTP status controllers respond with.
func Status(err error) int {
	var e *E
	if !errors.As(err, &e) {
		return fiber.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindUnauthorized:
		return fiber.StatusForbidden
	case KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
