// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devJWTSecret is the default secret. ValidateConfig refuses it in prod.
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for eventhub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: EVENTHUB_MONGO_URI, EVENTHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "eventhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "mongo_connect_retries", Default: 5, Desc: "MongoDB ping attempts at startup (default: 5)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 secret shared with the identity service"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank accepts any)"},

	// User summary cache
	{Name: "user_cache_ttl", Default: "30s", Desc: "How long user summaries are cached (0 disables)"},
	{Name: "redis_addr", Default: "", Desc: "Redis address for the user cache (blank uses in-process cache)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Join attempt limiting
	{Name: "join_attempt_limit", Default: 10, Desc: "Join attempts allowed per caller per window (0 disables)"},
	{Name: "join_attempt_window", Default: "1m", Desc: "Window for join_attempt_limit"},

	// Audit logging settings
	{Name: "audit_log_lifecycle", Default: "all", Desc: "Create/update/delete logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_membership", Default: "all", Desc: "Join/leave logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Persistence deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and creates"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for startup work such as index builds"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, EVENTHUB_* for app) and flags,
// with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EVENTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:            appValues.String("mongo_uri"),
		MongoDatabase:       appValues.String("mongo_database"),
		MongoMaxPoolSize:    uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:    uint64(appValues.Int("mongo_min_pool_size")),
		MongoConnectRetries: appValues.Int("mongo_connect_retries"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		UserCacheTTL:  appValues.Duration("user_cache_ttl", 30*time.Second),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		JoinAttemptLimit:  appValues.Int("join_attempt_limit"),
		JoinAttemptWindow: appValues.Duration("join_attempt_window", time.Minute),

		AuditLogLifecycle:  appValues.String("audit_log_lifecycle"),
		AuditLogMembership: appValues.String("audit_log_membership"),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
	}

	// Applied here so ConnectDB and EnsureSchema already use them.
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.JWTSecret == devJWTSecret {
		return fmt.Errorf("jwt_secret must be changed from the development default in prod")
	}
	if len(appCfg.JWTSecret) < 32 {
		logger.Warn("jwt_secret is short; 32+ chars recommended", zap.Int("length", len(appCfg.JWTSecret)))
	}

	if appCfg.UserCacheTTL < 0 {
		return fmt.Errorf("user_cache_ttl must not be negative (got %s)", appCfg.UserCacheTTL)
	}

	if appCfg.JoinAttemptLimit < 0 {
		return fmt.Errorf("join_attempt_limit must not be negative (got %d)", appCfg.JoinAttemptLimit)
	}
	if appCfg.JoinAttemptLimit > 0 && appCfg.JoinAttemptWindow <= 0 {
		return fmt.Errorf("join_attempt_window must be positive when join_attempt_limit is set")
	}

	for key, v := range map[string]string{
		"audit_log_lifecycle":  appCfg.AuditLogLifecycle,
		"audit_log_membership": appCfg.AuditLogMembership,
	} {
		switch v {
		case "", auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	return nil
}
