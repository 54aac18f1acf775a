// Package auth resolves the calling user from a bearer token.
//
// Tokens are issued by an external identity service. This package only
// checks the HS256 signature, issuer and expiry, then trusts the subject
// as the caller's user id.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier for tokens signed with secret. An empty
// issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses token and returns the user id held in its subject.
func (v *Verifier) Verify(token string) (primitive.ObjectID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}

// Caller is the authenticated user for one request. Name and Email are empty
// when the user has no local record yet.
type Caller struct {
	ID    primitive.ObjectID
	Name  string
	Email string
}

type ctxKey int

const callerKey ctxKey = iota

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CurrentCaller returns the caller and whether one was resolved.
func CurrentCaller(r *http.Request) (Caller, bool) {
	c, ok := r.Context().Value(callerKey).(Caller)
	return c, ok
}

// CallerID returns the caller's id, or the zero id when unauthenticated.
func CallerID(r *http.Request) primitive.ObjectID {
	c, _ := CurrentCaller(r)
	return c.ID
}

// CallerKey returns the caller's id in hex, or "" when unauthenticated.
func CallerKey(r *http.Request) string {
	c, ok := CurrentCaller(r)
	if !ok {
		return ""
	}
	return c.ID.Hex()
}

// Middleware rejects requests without a valid bearer token and attaches the
// resolved Caller to the request context.
type Middleware struct {
	verifier *Verifier
	users    *usercache.Resolver
	logger   *zap.Logger
}

func NewMiddleware(verifier *Verifier, users *usercache.Resolver, logger *zap.Logger) *Middleware {
	return &Middleware{verifier: verifier, users: users, logger: logger}
}

// RequireCaller responds 401 unless the request carries a valid token. The
// user lookup runs under the short timeout and a failure responds 503.
func (m *Middleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respond.Unauthorized(w, "Missing bearer token")
			return
		}
		id, err := m.verifier.Verify(token)
		if err != nil {
			reqmeta.Logger(r.Context(), m.logger).Debug("bearer token rejected", zap.Error(err))
			respond.Unauthorized(w, "Invalid bearer token")
			return
		}

		caller := Caller{ID: id}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), m.logger, "auth.resolve_caller")
		summary, found, err := m.users.Summary(ctx, id)
		cancel()
		if err != nil {
			respond.Error(w, reqmeta.Logger(r.Context(), m.logger), err)
			return
		}
		if found {
			caller = fromSummary(summary)
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func fromSummary(s models.UserSummary) Caller {
	return Caller{ID: s.ID, Name: s.Name, Email: s.Email}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
