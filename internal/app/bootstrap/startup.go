// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	assignmentstore "github.com/dalemusser/giftbubble/internal/app/store/assignments"
	"github.com/dalemusser/giftbubble/internal/app/store/audit"
	exclusionstore "github.com/dalemusser/giftbubble/internal/app/store/exclusions"
	groupstore "github.com/dalemusser/giftbubble/internal/app/store/groups"
	membershipstore "github.com/dalemusser/giftbubble/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/giftbubble/internal/app/store/notifications"
	userstore "github.com/dalemusser/giftbubble/internal/app/store/users"
	"github.com/dalemusser/giftbubble/internal/app/system/auditlog"
	"github.com/dalemusser/giftbubble/internal/app/system/cronauth"
	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/app/system/emailqueue"
	"github.com/dalemusser/giftbubble/internal/app/system/notify"
	"github.com/dalemusser/giftbubble/internal/app/system/timeouts"
	"github.com/dalemusser/giftbubble/internal/app/system/txn"
	"github.com/dalemusser/giftbubble/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Services is the shared service graph used by the HTTP handlers, the
// in-process worker and the operator CLI.
type Services struct {
	Registry    *prometheus.Registry
	Metrics     *draws.Metrics
	Audit       *auditlog.Logger
	AuditEvents *audit.Store
	Memberships *membershipstore.Store
	Queue       *emailqueue.Queue // nil when email is disabled
	Draws       *draws.Service
	Sweeper     *draws.Sweeper
	Cron        *cronauth.Verifier
	Worker      *workers.DrawSweep // nil unless draw_sweep_interval > 0
}

// NewServices builds the draw service graph on top of deps. It starts
// nothing and leaves Cron unset; the operator CLI shares it without a
// cron secret.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*Services, error) {
	db := deps.MongoDatabase

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := draws.NewMetrics(reg)

	auditEvents := audit.New(db)
	auditLog := auditlog.New(auditEvents, logger, auditlog.Config{
		Draw: appCfg.AuditLogDraw,
		Cron: appCfg.AuditLogCron,
	})

	s := &Services{
		Registry:    reg,
		Metrics:     metrics,
		Audit:       auditLog,
		AuditEvents: auditEvents,
		Memberships: membershipstore.New(db),
	}

	var email notify.EmailQueue
	if deps.Redis != nil {
		q, err := emailqueue.New(&emailqueue.Config{RedisClient: deps.Redis, Key: appCfg.EmailQueueKey})
		if err != nil {
			return nil, err
		}
		s.Queue = q
		email = q
	}

	users := userstore.New(db)
	groups := groupstore.New(db)
	notifier := notify.New(users, notificationstore.New(db), email, metrics, logger.Named("notify"), notify.Config{
		SiteName: appCfg.SiteName,
		BaseURL:  appCfg.BaseURL,
	})

	s.Draws = draws.NewService(draws.Deps{
		Groups:      groups,
		Members:     s.Memberships,
		Exclusions:  exclusionstore.New(db),
		Assignments: assignmentstore.New(db),
		Users:       users,
		Tx:          txn.New(deps.MongoClient, logger),
		Notifier:    notifier,
		Audit:       auditLog,
		Metrics:     metrics,
		Log:         logger.Named("draws"),
	}, draws.Config{
		MaxAttempts:   appCfg.DrawMaxAttempts,
		Constructive:  appCfg.DrawConstructive,
		FanoutTimeout: appCfg.FanoutTimeout,
	})

	s.Sweeper = draws.NewSweeper(groups, s.Draws, auditLog, metrics, logger.Named("sweep"), draws.SweepConfig{
		Budget:          appCfg.DrawSweepBudget,
		Limit:           appCfg.DrawSweepLimit,
		PerGroupTimeout: appCfg.DrawTimeout,
	})

	if appCfg.DrawSweepEvery > 0 {
		s.Worker = workers.NewDrawSweep(s.Sweeper, logger.Named("worker"), appCfg.DrawSweepEvery, appCfg.DrawSweepBudget+appCfg.DrawTimeout)
	}
	return s, nil
}

// Startup configures timeouts, builds the service graph and starts the
// optional sweep worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Draw:   appCfg.DrawTimeout,
		Sweep:  appCfg.DrawSweepBudget + appCfg.DrawTimeout,
		Fanout: appCfg.FanoutTimeout,
	})

	s, err := NewServices(appCfg, deps, logger)
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		return err
	}
	if s.Cron, err = cronauth.New(appCfg.CronSecret, appCfg.CronSecretHash); err != nil {
		logger.Error("cron secret invalid", zap.Error(err))
		return err
	}
	*deps.Services = *s

	if s.Worker != nil {
		s.Worker.Start()
	}
	logger.Info("giftbubble started",
		zap.Bool("email_enabled", s.Queue != nil),
		zap.Bool("sweep_worker", s.Worker != nil),
		zap.Int("draw_max_attempts", appCfg.DrawMaxAttempts),
		zap.Bool("draw_constructive_fallback", appCfg.DrawConstructive))
	return nil
}
