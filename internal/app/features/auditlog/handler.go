// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/giftbubble/internal/app/policy/grouppolicy"
	"github.com/dalemusser/giftbubble/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier reads audit events. *audit.Store implements it.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Events EventQuerier
	Roles  grouppolicy.RoleLookup
	Log    *zap.Logger
}

// NewHandler constructs the audit log handler.
func NewHandler(events EventQuerier, roles grouppolicy.RoleLookup, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Roles: roles, Log: logger}
}
