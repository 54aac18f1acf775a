package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/features/health"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func ok(name string) health.Check {
	return health.Check{Name: name, Ping: func(context.Context) error { return nil }}
}

func TestServe_AllHealthy(t *testing.T) {
	h := health.NewHandler(zap.NewNop(), ok("database"), ok("cache"))

	rec := testutil.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec.AssertStatus(t, http.StatusOK)
	var body response
	rec.Decode(t, &body)
	if body.Status != "ok" || body.Checks["database"] != "ok" || body.Checks["cache"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestServe_FailingCheck(t *testing.T) {
	down := health.Check{Name: "cache", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}
	h := health.NewHandler(zap.NewNop(), ok("database"), down)

	rec := testutil.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec.AssertStatus(t, http.StatusServiceUnavailable)
	var body response
	rec.Decode(t, &body)
	if body.Status != "error" || body.Checks["cache"] != "unavailable" || body.Checks["database"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestServe_MongoCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := health.NewHandler(zap.NewNop(), health.MongoCheck(db.Client()))

	rec := testutil.NewRecorder()
	health.Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	rec.AssertStatus(t, http.StatusOK)
}
