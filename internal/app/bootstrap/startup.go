// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	t := timeouts.Current()
	logger.Info("eventhub ready",
		zap.String("env", coreCfg.Env),
		zap.String("user_cache", cacheBackend(appCfg, deps)),
		zap.Duration("user_cache_ttl", appCfg.UserCacheTTL),
		zap.Int("join_attempt_limit", appCfg.JoinAttemptLimit),
		zap.Duration("join_attempt_window", appCfg.JoinAttemptWindow),
		zap.String("audit_lifecycle", appCfg.AuditLogLifecycle),
		zap.String("audit_membership", appCfg.AuditLogMembership),
		zap.Duration("timeout_short", t.Short),
		zap.Duration("timeout_medium", t.Medium),
		zap.Duration("timeout_long", t.Long),
	)
	if appCfg.JWTIssuer == "" {
		logger.Warn("jwt_issuer is blank; tokens from any issuer are accepted")
	}
	return nil
}

func cacheBackend(appCfg AppConfig, deps DBDeps) string {
	switch {
	case appCfg.UserCacheTTL == 0:
		return "disabled"
	case deps.Redis != nil:
		return "redis"
	default:
		return "memory"
	}
}
