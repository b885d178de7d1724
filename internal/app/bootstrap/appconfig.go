// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Framework settings (ports, TLS, log level, CORS) live in WAFFLE's
// CoreConfig. Everything the draw service itself needs is here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie used by the manual trigger
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	// Redis backs the outgoing email queue. Empty RedisAddr disables email.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EmailQueueKey string

	// Shared secret for POST /cron/draws. A bcrypt hash takes precedence.
	CronSecret     string
	CronSecretHash string

	// Draw engine and scheduler
	DrawMaxAttempts  int
	DrawConstructive bool
	DrawSweepEvery   time.Duration // 0 disables the in-process worker
	DrawSweepBudget  time.Duration
	DrawSweepLimit   int64
	DrawTimeout      time.Duration
	FanoutTimeout    time.Duration

	// Notifications
	SiteName string
	BaseURL  string // prefix for links in notifications

	// Audit logging: all | db | log | off
	AuditLogDraw string
	AuditLogCron string

	MetricsEnabled bool
}
