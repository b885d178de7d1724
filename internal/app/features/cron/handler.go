// internal/app/features/cron/handler.go
package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SweepRunner runs one scheduler sweep. *draws.Sweeper implements it.
type SweepRunner interface {
	Run(ctx context.Context, now time.Time) (draws.SweepResult, error)
}

// Handler serves the externally scheduled draw sweep.
type Handler struct {
	Sweeper SweepRunner
	Log     *zap.Logger
	Now     func() time.Time
}

func NewHandler(sweeper SweepRunner, logger *zap.Logger) *Handler {
	return &Handler{Sweeper: sweeper, Log: logger, Now: time.Now}
}

// HandleSweep handles POST /cron/draws. The shared secret has already been
// checked by the route's middleware.
//
//	200 {"groupsChecked":n,"drawsExecuted":n,"drawsFailed":n,"groupsSkipped":n}
//	503 when the due groups could not be listed
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Sweep(), h.Log, "cron draw sweep")
	defer cancel()

	res, err := h.Sweeper.Run(ctx, h.Now().UTC())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.Log.Error("cron: sweep failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"kind": string(draws.KindPersistence), "message": "could not list due groups"},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}
