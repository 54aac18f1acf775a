// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	eventsfeature "github.com/dalemusser/eventhub/internal/app/features/events"
	healthfeature "github.com/dalemusser/eventhub/internal/app/features/health"
	organizationsfeature "github.com/dalemusser/eventhub/internal/app/features/organizations"
	eventservice "github.com/dalemusser/eventhub/internal/app/service/events"
	membershipservice "github.com/dalemusser/eventhub/internal/app/service/membership"
	orgservice "github.com/dalemusser/eventhub/internal/app/service/organizations"
	auditstore "github.com/dalemusser/eventhub/internal/app/store/audit"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. Services are built once here and shared
// by every request.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	users := usercache.NewResolver(newUserCache(appCfg, deps, logger), userstore.New(db), logger)
	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Lifecycle:  appCfg.AuditLogLifecycle,
		Membership: appCfg.AuditLogMembership,
	})
	joins := ratelimit.New(appCfg.JoinAttemptLimit, appCfg.JoinAttemptWindow)
	am := auth.NewMiddleware(auth.NewVerifier(appCfg.JWTSecret, appCfg.JWTIssuer), users, logger)

	r := chi.NewRouter()

	// Request ids for every route, echoed back in X-Request-ID.
	r.Use(reqmeta.Middleware)

	// Health check endpoint for load balancers and orchestrators
	checks := []healthfeature.Check{healthfeature.MongoCheck(deps.MongoClient)}
	if deps.Redis != nil {
		checks = append(checks, healthfeature.Check{Name: "cache", Ping: func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	healthHandler := healthfeature.NewHandler(logger, checks...)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		// Organization registry
		orgHandler := organizationsfeature.NewHandler(orgservice.New(db, users, audit, logger), logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler, am, joins))

		// Event registry and membership
		eventsHandler := eventsfeature.NewHandler(
			eventservice.New(db, users, audit, logger),
			membershipservice.New(db, users, audit, logger),
			logger,
		)
		api.Mount("/events", eventsfeature.Routes(eventsHandler, am, joins))
	})

	return r, nil
}

// newUserCache picks the Redis backend when a client is configured and the
// in-process map otherwise.
func newUserCache(appCfg AppConfig, deps DBDeps, logger *zap.Logger) usercache.Cache {
	if deps.Redis != nil && appCfg.UserCacheTTL > 0 {
		return usercache.NewRedis(deps.Redis, appCfg.UserCacheTTL, logger)
	}
	return usercache.NewMemory(appCfg.UserCacheTTL)
}
