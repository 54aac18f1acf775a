// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency checked by the health endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return Check{Name: "database", Ping: func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}}
}

// Handler holds the dependencies checked by GET /health.
type Handler struct {
	Checks []Check
	Log    *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{Checks: checks, Log: logger}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "checks":{"database":"ok","cache":"ok"} }
//
// When any check fails: 503 with that check reported as "unavailable".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Log.Error("health-check failed", zap.String("check", c.Name), zap.Error(err))
			resp.Status = "error"
			resp.Checks[c.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	respond.JSON(w, status, resp)
}
