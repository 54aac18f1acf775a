// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS); everything that
// belongs to eventhub itself lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI            string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase       string // Database name within MongoDB
	MongoMaxPoolSize    uint64 // Upper bound on pooled connections
	MongoMinPoolSize    uint64 // Connections kept warm
	MongoConnectRetries int    // Ping attempts before startup gives up

	// Bearer token verification (tokens are issued by the identity service)
	JWTSecret string // HS256 shared secret
	JWTIssuer string // Expected "iss" claim; blank accepts any issuer

	// User summary cache
	UserCacheTTL  time.Duration // Zero disables caching
	RedisAddr     string        // Blank selects the in-process cache
	RedisPassword string
	RedisDB       int

	// Join attempts (event join codes and invitation codes) per caller
	JoinAttemptLimit  int // Zero disables limiting
	JoinAttemptWindow time.Duration

	// Audit logging destinations: all, db, log or off
	AuditLogLifecycle  string
	AuditLogMembership string

	// Persistence deadlines
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
