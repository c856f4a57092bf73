package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestIs(t *testing.T) {
	err := NotFound("Post not found")
	if !Is(err, KindNotFound) {
		t.Error("Is must match the error's own kind")
	}
	if Is(err, KindConflict) {
		t.Error("Is must not match a different kind")
	}
	if Is(errors.New("plain"), KindNotFound) {
		t.Error("Is must not match errors outside the taxonomy")
	}
	if Is(nil, KindNotFound) {
		t.Error("Is must not match nil")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading post: %w", Validation("Comment content cannot be empty"))
	if !Is(err, KindValidation) {
		t.Error("Is must see through fmt.Errorf wrapping")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(Conflict("A connection request already exists")); got != "A connection request already exists" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(errors.New("mongo: connection reset")); got != "Server error" {
		t.Errorf("untyped error: Message = %q, want generic message", got)
	}
}

func TestTransientUnwrap(t *testing.T) {
	cause := errors.New("commit timeout")
	err := Transient("view could not be recorded", cause)
	if !errors.Is(err, cause) {
		t.Error("Transient must wrap its cause")
	}
	if !Is(err, KindTransient) {
		t.Error("Transient must carry the transient kind")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), fiber.StatusNotFound},
		{Validation("x"), fiber.StatusBadRequest},
		{Conflict("x"), fiber.StatusConflict},
		{Unauthorized("x"), fiber.StatusForbidden},
		{Transient("x", nil), fiber.StatusServiceUnavailable},
		{errors.New("x"), fiber.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Errorf("Status(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
