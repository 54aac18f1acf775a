// Package reqmeta tags each request with an id and the client address so
// logs and audit records can be correlated.
package reqmeta

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

// Meta describes the request that triggered an operation.
type Meta struct {
	ID string
	IP string
}

type ctxKey struct{}

// Middleware assigns a request id (reusing a well-formed inbound one),
// echoes it in the response and stores it with the client IP in the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := With(r.Context(), Meta{ID: id, IP: ClientIP(r)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// With returns a copy of ctx carrying m.
func With(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// From returns the Meta stored in ctx, or the zero value.
func From(ctx context.Context) Meta {
	m, _ := ctx.Value(ctxKey{}).(Meta)
	return m
}

// ClientIP extracts the client address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// Logger returns base annotated with the request id found in ctx.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if id := From(ctx).ID; id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}
