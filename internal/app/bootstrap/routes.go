// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	auditlogfeature "github.com/dalemusser/giftbubble/internal/app/features/auditlog"
	cronfeature "github.com/dalemusser/giftbubble/internal/app/features/cron"
	drawfeature "github.com/dalemusser/giftbubble/internal/app/features/draw"
	healthfeature "github.com/dalemusser/giftbubble/internal/app/features/health"
	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler mounts the draw API on a chi router:
//
//	GET  /health
//	GET  /metrics                  (when metrics_enabled)
//	POST /cron/draws               (shared secret)
//	POST /groups/{id}/draw         (session; owner or admin)
//	POST /groups/{id}/draw/reset   (session; owner or admin)
//	GET  /groups/{id}/draw/me      (session; active member)
//	GET  /groups/{id}/draw/history (session; owner or admin)
//	GET  /audit                    (session; admin)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := deps.Services
	if s == nil || s.Draws == nil {
		return nil, errors.New("services not initialised; Startup must run first")
	}

	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)

	var queuePinger healthfeature.Pinger
	if s.Queue != nil {
		queuePinger = s.Queue
	}
	healthHandler := healthfeature.NewHandler(healthfeature.MongoPinger{Client: deps.MongoClient}, queuePinger, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}

	cronHandler := cronfeature.NewHandler(s.Sweeper, logger.Named("cron"))
	cronfeature.MountRoutes(r, cronHandler, s.Cron, func(req *http.Request) {
		s.Audit.CronAuthFailure(req.Context(), req)
	})

	drawHandler := drawfeature.NewHandler(s.Draws, s.Memberships, logger.Named("draw"))
	drawfeature.MountRoutes(r, drawHandler, sessionMgr)

	auditHandler := auditlogfeature.NewHandler(s.AuditEvents, s.Memberships, logger.Named("audit"))
	auditlogfeature.MountRoutes(r, auditHandler, sessionMgr)

	return r, nil
}
