package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/giftbubble/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// depther is implemented by queues that can report how many messages wait.
type depther interface {
	Len(ctx context.Context) (int64, error)
}

// MongoPinger adapts a *mongo.Client to Pinger.
type MongoPinger struct{ Client *mongo.Client }

func (m MongoPinger) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB    Pinger
	Queue Pinger // optional; nil when the email queue is disabled
	Log   *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(db, queue Pinger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Queue: queue, Log: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Queue      string `json:"queue,omitempty"`
	QueueDepth *int64 `json:"queueDepth,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "queue":"connected", "queueDepth":0 }
//
// When MongoDB is unreachable: 503. An unreachable queue degrades the
// status but keeps 200, since draws still commit without it.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok", Database: "connected"}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Queue != nil {
		resp.Queue = "connected"
		if err := h.Queue.Ping(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Queue = "disconnected"
		} else if d, ok := h.Queue.(depther); ok {
			if n, err := d.Len(ctx); err == nil {
				resp.QueueDepth = &n
			} else {
				h.Log.Warn("health-check: queue length failed", zap.Error(err))
			}
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
