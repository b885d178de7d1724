package cli

import (
	"context"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/bootstrap"
	"github.com/dalemusser/giftbubble/internal/app/system/auditlog"
	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/app/system/santa"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mongoBackend struct {
	deps bootstrap.DBDeps
	svc  *bootstrap.Services
	log  *zap.Logger
}

func openMongo(ctx context.Context, opts *RootOptions, logger *zap.Logger) (Backend, error) {
	appCfg := bootstrap.AppConfig{
		MongoURI:        opts.MongoURI,
		MongoDatabase:   opts.MongoDatabase,
		RedisAddr:       opts.RedisAddr,
		EmailQueueKey:   envOr("GIFTBUBBLE_EMAIL_QUEUE_KEY", ""),
		DrawMaxAttempts: santa.DefaultMaxAttempts,
		DrawSweepBudget: opts.Timeout / 2,
		DrawTimeout:     30 * time.Second,
		FanoutTimeout:   30 * time.Second,
		SiteName:        envOr("GIFTBUBBLE_SITE_NAME", "GiftBubble"),
		BaseURL:         envOr("GIFTBUBBLE_BASE_URL", ""),
		AuditLogDraw:    "all",
		AuditLogCron:    "all",
	}

	deps, err := bootstrap.ConnectDB(ctx, nil, appCfg, logger)
	if err != nil {
		return nil, err
	}
	b := &mongoBackend{deps: deps, log: logger}
	if err := bootstrap.EnsureSchema(ctx, nil, appCfg, deps, logger); err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}
	if b.svc, err = bootstrap.NewServices(appCfg, deps, logger); err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}
	return b, nil
}

var cliActor = draws.Actor{Trigger: auditlog.TriggerCLI}

func (b *mongoBackend) Sweep(ctx context.Context) (draws.SweepResult, error) {
	return b.svc.Sweeper.Run(ctx, time.Now().UTC())
}

func (b *mongoBackend) Draw(ctx context.Context, groupID primitive.ObjectID) (draws.Result, error) {
	return b.svc.Draws.ExecuteDraw(ctx, groupID, cliActor)
}

func (b *mongoBackend) Reset(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return b.svc.Draws.ResetDraw(ctx, groupID, cliActor)
}

func (b *mongoBackend) Close(ctx context.Context) error {
	return bootstrap.Shutdown(ctx, nil, bootstrap.AppConfig{}, b.deps, b.log)
}
