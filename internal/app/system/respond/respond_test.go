package respond_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type body struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return b
}

func TestError_MapsKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
		field  string
	}{
		{apperr.Validation("name", "Name is required."), http.StatusBadRequest, "validation", "name"},
		{apperr.NotFound("Event not found"), http.StatusNotFound, "not_found", ""},
		{apperr.Forbidden("nope"), http.StatusForbidden, "forbidden", ""},
		{apperr.Conflict("Event is full"), http.StatusConflict, "conflict", ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respond.Error(rec, zap.NewNop(), tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		b := decode(t, rec)
		if b.Error.Kind != tt.kind || b.Error.Field != tt.field {
			t.Errorf("%v: body = %+v", tt.err, b.Error)
		}
	}
}

func TestError_HidesUnavailableCause(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Error(rec, zap.NewNop(), errors.New("connection refused to 10.0.0.5"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	b := decode(t, rec)
	if b.Error.Kind != "unavailable" || b.Error.Message != "Service temporarily unavailable" {
		t.Errorf("body = %+v", b.Error)
	}
}

func TestUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Unauthorized(rec, "missing bearer token")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if b := decode(t, rec); b.Error.Kind != respond.KindUnauthorized {
		t.Errorf("kind = %q", b.Error.Kind)
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	var v map[string]any
	if respond.Decode(rec, req, &v) {
		t.Fatal("Decode accepted malformed JSON")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDecode_EmptyBodyIsFine(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	rec := httptest.NewRecorder()

	var v struct{ Name string }
	if !respond.Decode(rec, req, &v) {
		t.Fatalf("Decode rejected empty body: %s", rec.Body.String())
	}
}

func TestPathID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-an-id")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	if _, ok := respond.PathID(rec, req, "id", "Event not found"); ok {
		t.Fatal("PathID accepted a bad id")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if b := decode(t, rec); b.Error.Message != "Event not found" {
		t.Errorf("message = %q", b.Error.Message)
	}
}
