package bootstrap

import (
	"strings"
	"testing"
	"time"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:        "mongodb://localhost:27017",
		CronSecret:      "s3cret",
		DrawMaxAttempts: 1000,
		DrawSweepBudget: 50 * time.Second,
		AuditLogDraw:    "all",
		AuditLogCron:    "db",
	}
}

func TestValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", "dev", func(*AppConfig) {}, ""},
		{"hash only", "dev", func(c *AppConfig) { c.CronSecret = ""; c.CronSecretHash = "$2a$10$x" }, ""},
		{"no cron secret", "dev", func(c *AppConfig) { c.CronSecret = "" }, "cron_secret"},
		{"zero attempts", "dev", func(c *AppConfig) { c.DrawMaxAttempts = 0 }, "draw_max_attempts"},
		{"negative interval", "dev", func(c *AppConfig) { c.DrawSweepEvery = -time.Second }, "negative"},
		{"prod needs session key", "prod", func(*AppConfig) {}, "session_key"},
		{"prod with session key", "prod", func(c *AppConfig) { c.SessionKey = strings.Repeat("k", 32) }, ""},
		{"bad audit mode", "dev", func(c *AppConfig) { c.AuditLogDraw = "verbose" }, "audit_log"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := validateApp(tc.env, cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
