// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/policy/grouppolicy"
	"github.com/dalemusser/giftbubble/internal/app/store/audit"
	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/dalemusser/giftbubble/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

type eventRow struct {
	Timestamp     time.Time         `json:"timestamp"`
	GroupID       string            `json:"groupId,omitempty"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	ActorID       string            `json:"actorId,omitempty"`
	Trigger       string            `json:"trigger,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events     []eventRow `json:"events"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
}

// ServeGroupHistory handles GET /groups/{id}/draw/history: the draw events
// of one group, for its owners and admins.
func (h *Handler) ServeGroupHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid group id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	allowed, err := grouppolicy.CanManageDraw(ctx, h.Roles, user, groupID)
	cancel()
	if err != nil {
		h.Log.Error("audit: membership check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "PersistenceError", "please try again")
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Forbidden", "you do not have access to this group's history")
		return
	}

	filter, page := parseFilter(r)
	filter.GroupID = &groupID
	filter.Category = audit.CategoryDraw
	h.serve(w, r, filter, page)
}

// ServeList handles GET /audit: every draw and cron event, for admins.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page := parseFilter(r)
	h.serve(w, r, filter, page)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, filter audit.QueryFilter, page int) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "PersistenceError", "please try again")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "PersistenceError", "please try again")
		return
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	resp := listResponse{Events: make([]eventRow, 0, len(events)), Page: page, TotalPages: totalPages, Total: total}
	for _, e := range events {
		row := eventRow{
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			Trigger:       e.Trigger,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.GroupID != nil {
			row.GroupID = e.GroupID.Hex()
		}
		if e.ActorID != nil {
			row.ActorID = e.ActorID.Hex()
		}
		resp.Events = append(resp.Events, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseFilter reads category, event_type, start_date, end_date (YYYY-MM-DD)
// and page from the query string. Bad values are ignored.
func parseFilter(r *http.Request) (audit.QueryFilter, int) {
	q := r.URL.Query()
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("start_date"))); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("end_date"))); err == nil {
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}
	return filter, page
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"kind": kind, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
