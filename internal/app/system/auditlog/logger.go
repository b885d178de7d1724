// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/giftbubble/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Trigger values recorded on draw events.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCLI       = "cli"
)

// Config holds audit logging configuration.
// Each field takes "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap
// only) or "off".
type Config struct {
	// Draw covers draw execution, failure and reset.
	Draw string
	// Cron covers sweep summaries and rejected cron callers.
	Cron string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.Trigger != "" {
		fields = append(fields, zap.String("trigger", event.Trigger))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op. Storage errors are logged, not returned.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if err := l.record(ctx, event); err != nil {
		l.zapLog.Error("failed to store audit event",
			zap.Error(err),
			zap.String("event_type", event.EventType),
		)
	}
}

// record writes event to zap and MongoDB according to configuration and
// returns the storage error, if any.
func (l *Logger) record(ctx context.Context, event audit.Event) error {
	if l == nil {
		return nil
	}

	var setting string
	switch event.Category {
	case audit.CategoryDraw:
		setting = l.config.Draw
	case audit.CategoryCron:
		setting = l.config.Cron
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return nil
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			return fmt.Errorf("store %s audit event: %w", event.EventType, err)
		}
	}
	return nil
}

// --- Draw Events ---

// DrawExecuted records a draw. It runs inside the draw's transaction, so a
// storage error is returned and rolls the draw back.
func (l *Logger) DrawExecuted(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, drawID string, assignments int) error {
	return l.record(ctx, audit.Event{
		Category:  audit.CategoryDraw,
		EventType: audit.EventDrawExecuted,
		GroupID:   &groupID,
		ActorID:   actorID,
		Trigger:   trigger,
		Success:   true,
		Details: map[string]string{
			"draw_id":     drawID,
			"assignments": strconv.Itoa(assignments),
		},
	})
}

// DrawFailed logs a draw that was rejected or could not be persisted.
// reason is the error kind.
func (l *Logger) DrawFailed(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryDraw,
		EventType:     audit.EventDrawFailed,
		GroupID:       &groupID,
		ActorID:       actorID,
		Trigger:       trigger,
		Success:       false,
		FailureReason: reason,
	})
}

// DrawReset records the removal of a group's assignments. Like
// DrawExecuted it returns the storage error.
func (l *Logger) DrawReset(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, drawID string, removed int64) error {
	return l.record(ctx, audit.Event{
		Category:  audit.CategoryDraw,
		EventType: audit.EventDrawReset,
		GroupID:   &groupID,
		ActorID:   actorID,
		Trigger:   trigger,
		Success:   true,
		Details: map[string]string{
			"draw_id": drawID,
			"removed": strconv.FormatInt(removed, 10),
		},
	})
}

// --- Cron Events ---

// SweepCompleted logs the summary of one scheduler sweep.
func (l *Logger) SweepCompleted(ctx context.Context, checked, executed, failed, skipped int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCron,
		EventType: audit.EventSweepCompleted,
		Success:   failed == 0,
		Details: map[string]string{
			"groups_checked": strconv.Itoa(checked),
			"draws_executed": strconv.Itoa(executed),
			"draws_failed":   strconv.Itoa(failed),
			"groups_skipped": strconv.Itoa(skipped),
		},
	})
}

// CronAuthFailure logs a cron request rejected for a bad secret.
func (l *Logger) CronAuthFailure(ctx context.Context, r *http.Request) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryCron,
		EventType:     audit.EventCronAuthFailure,
		IP:            getClientIP(r),
		Success:       false,
		FailureReason: "invalid_secret",
	})
}
