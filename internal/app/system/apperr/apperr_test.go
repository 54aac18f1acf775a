package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/apperr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"validation", apperr.Validation("name", "Name is required."), apperr.KindValidation},
		{"not found", apperr.NotFound("Event not found"), apperr.KindNotFound},
		{"forbidden", apperr.Forbidden("Invalid join code"), apperr.KindForbidden},
		{"conflict", apperr.Conflict("Event is full"), apperr.KindConflict},
		{"wrapped conflict", fmt.Errorf("join: %w", apperr.Conflict("Event is full")), apperr.KindConflict},
		{"plain error", errors.New("socket closed"), apperr.KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsIs_MatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", apperr.Conflict("Event is full"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Error("expected errors.Is(err, ErrConflict)")
	}
	if errors.Is(err, apperr.ErrNotFound) {
		t.Error("conflict must not match ErrNotFound")
	}
}

func TestUnwrap_KeepsCause(t *testing.T) {
	cause := errors.New("exhausted")
	err := apperr.ConflictWrap("could not allocate code", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if err.Error() != "could not allocate code: exhausted" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAs_WrapsUnknownAsUnavailable(t *testing.T) {
	e := apperr.As(errors.New("boom"))
	if e.Kind != apperr.KindUnavailable {
		t.Errorf("Kind = %q, want unavailable", e.Kind)
	}
	v := apperr.Validation("url", "bad")
	if apperr.As(v) != v {
		t.Error("As should return classified errors unchanged")
	}
}

func TestIsTransient(t *testing.T) {
	if !apperr.IsTransient(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be transient")
	}
	if !apperr.IsTransient(fmt.Errorf("find: %w", context.DeadlineExceeded)) {
		t.Error("wrapped deadline exceeded should be transient")
	}
	if apperr.IsTransient(nil) {
		t.Error("nil is not transient")
	}
	if apperr.IsTransient(errors.New("validation failed")) {
		t.Error("plain error is not transient")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[apperr.Kind]int{
		apperr.KindValidation:  http.StatusBadRequest,
		apperr.KindNotFound:    http.StatusNotFound,
		apperr.KindForbidden:   http.StatusForbidden,
		apperr.KindConflict:    http.StatusConflict,
		apperr.KindUnavailable: http.StatusServiceUnavailable,
	}
	for k, want := range tests {
		if got := apperr.HTTPStatus(k); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", k, got, want)
		}
	}
}
