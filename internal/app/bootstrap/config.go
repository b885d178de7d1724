// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/santa"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for GiftBubble. Each key can
// be set in a config file (mongo_uri), the environment
// (GIFTBUBBLE_MONGO_URI) or a flag (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "giftbubble", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "", Desc: "Session signing key (required in prod)"},
	{Name: "session_name", Default: "giftbubble-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address for the email queue (blank disables email)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "email_queue_key", Default: "giftbubble:email:outbox", Desc: "Redis list holding outgoing email"},

	{Name: "cron_secret", Default: "", Desc: "Shared secret for POST /cron/draws"},
	{Name: "cron_secret_hash", Default: "", Desc: "bcrypt hash of the cron secret (overrides cron_secret)"},

	{Name: "draw_max_attempts", Default: santa.DefaultMaxAttempts, Desc: "Shuffle attempts before a draw is declared infeasible"},
	{Name: "draw_constructive_fallback", Default: false, Desc: "Search for a valid assignment when shuffling fails"},
	{Name: "draw_sweep_interval", Default: "0s", Desc: "In-process sweep interval (0 disables; use the cron endpoint)"},
	{Name: "draw_sweep_budget", Default: "50s", Desc: "Wall-clock budget for starting draws in one sweep"},
	{Name: "draw_sweep_limit", Default: 500, Desc: "Maximum groups considered per sweep"},
	{Name: "draw_timeout", Default: "30s", Desc: "Deadline for one draw"},
	{Name: "fanout_timeout", Default: "30s", Desc: "Deadline for notifying givers after a draw"},

	{Name: "site_name", Default: "GiftBubble", Desc: "Name used in notifications"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for links in notifications"},

	{Name: "audit_log_draw", Default: "all", Desc: "Draw event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_cron", Default: "all", Desc: "Cron event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics on /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
// Precedence: flags > env (WAFFLE_* core, GIFTBUBBLE_* app) > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GIFTBUBBLE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		EmailQueueKey: appValues.String("email_queue_key"),

		CronSecret:     appValues.String("cron_secret"),
		CronSecretHash: appValues.String("cron_secret_hash"),

		DrawMaxAttempts:  appValues.Int("draw_max_attempts"),
		DrawConstructive: appValues.Bool("draw_constructive_fallback"),
		DrawSweepEvery:   appValues.Duration("draw_sweep_interval", 0),
		DrawSweepBudget:  appValues.Duration("draw_sweep_budget", 50*time.Second),
		DrawSweepLimit:   int64(appValues.Int("draw_sweep_limit")),
		DrawTimeout:      appValues.Duration("draw_timeout", 30*time.Second),
		FanoutTimeout:    appValues.Duration("fanout_timeout", 30*time.Second),

		SiteName: appValues.String("site_name"),
		BaseURL:  appValues.String("base_url"),

		AuditLogDraw: appValues.String("audit_log_draw"),
		AuditLogCron: appValues.String("audit_log_cron"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

var validAuditModes = map[string]bool{"": true, "all": true, "db": true, "log": true, "off": true}

// ValidateConfig rejects settings that would only fail later: a malformed
// Mongo URI, no cron secret, or a draw attempt budget below one.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if appCfg.CronSecret == "" && appCfg.CronSecretHash == "" {
		return errors.New("cron_secret or cron_secret_hash is required")
	}
	if appCfg.DrawMaxAttempts < 1 {
		return fmt.Errorf("draw_max_attempts must be at least 1, got %d", appCfg.DrawMaxAttempts)
	}
	if appCfg.DrawSweepEvery < 0 || appCfg.DrawSweepBudget < 0 {
		return errors.New("draw sweep durations must not be negative")
	}
	if env == "prod" && appCfg.SessionKey == "" {
		return errors.New("session_key is required in prod")
	}
	if !validAuditModes[appCfg.AuditLogDraw] || !validAuditModes[appCfg.AuditLogCron] {
		return errors.New("audit_log_draw and audit_log_cron must be all, db, log or off")
	}
	return nil
}
