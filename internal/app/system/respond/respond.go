// Package respond writes the JSON bodies shared by every API handler.
//
// Errors are always shaped as
//
//	{"error": {"kind": "...", "message": "...", "field": "..."}}
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// KindUnauthorized is reported when no valid caller could be resolved. It is
// produced by the auth middleware only, never by services.
const KindUnauthorized = "unauthorized"

// KindRateLimited is reported when a caller exceeds an attempt limit.
const KindRateLimited = "rate_limited"

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps err to its status and error body. Unavailable errors keep their
// cause out of the response; it is logged instead.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	e := apperr.As(err)
	msg := e.Message
	if e.Kind == apperr.KindUnavailable {
		logger.Error("request failed", zap.Error(err))
		msg = "Service temporarily unavailable"
	}
	JSON(w, apperr.HTTPStatus(e.Kind), errorBody{Error: errorDetail{
		Kind:    string(e.Kind),
		Message: msg,
		Field:   e.Field,
	}})
}

// Unauthorized writes a 401 with msg.
func Unauthorized(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Kind: KindUnauthorized, Message: msg}})
}

// TooManyRequests writes a 429 with msg.
func TooManyRequests(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{Kind: KindRateLimited, Message: msg}})
}

// BadRequest writes a validation error that no service produced, such as a
// malformed body or path id.
func BadRequest(w http.ResponseWriter, field, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Kind:    string(apperr.KindValidation),
		Message: msg,
		Field:   field,
	}})
}

// Decode reads a JSON body into v. On failure it writes a 400 and returns
// false. An empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "body", "Request body must be valid JSON.")
		return false
	}
	return true
}

// PathID parses the chi URL parameter name as an ObjectID. On failure it
// writes a 404, since no record can have that id.
func PathID(w http.ResponseWriter, r *http.Request, name, notFound string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		JSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Kind:    string(apperr.KindNotFound),
			Message: notFound,
		}})
		return primitive.NilObjectID, false
	}
	return id, true
}
