// internal/app/features/draw/handler.go
package draw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/policy/grouppolicy"
	"github.com/dalemusser/giftbubble/internal/app/system/auditlog"
	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the subset of *draws.Service the handlers call.
type Service interface {
	ExecuteDraw(ctx context.Context, groupID primitive.ObjectID, actor draws.Actor) (draws.Result, error)
	ResetDraw(ctx context.Context, groupID primitive.ObjectID, actor draws.Actor) (int64, error)
	MyAssignment(ctx context.Context, groupID, giverID primitive.ObjectID) (draws.MyAssignment, error)
}

// Handler serves the manual draw trigger and the giver's lookup.
type Handler struct {
	Draws Service
	Roles grouppolicy.RoleLookup
	Log   *zap.Logger
}

func NewHandler(svc Service, roles grouppolicy.RoleLookup, logger *zap.Logger) *Handler {
	return &Handler{Draws: svc, Roles: roles, Log: logger}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type drawResponse struct {
	Success         bool       `json:"success"`
	AssignmentCount int        `json:"assignmentCount,omitempty"`
	Error           *errorBody `json:"error,omitempty"`
}

type resetResponse struct {
	Success bool  `json:"success"`
	Removed int64 `json:"removed"`
}

type myAssignmentResponse struct {
	Success      bool       `json:"success"`
	GroupID      string     `json:"groupId"`
	ReceiverID   string     `json:"receiverId"`
	ReceiverName string     `json:"receiverName,omitempty"`
	DrawnAt      *time.Time `json:"drawnAt,omitempty"`
}

// HandleDraw handles POST /groups/{id}/draw.
//
//	200 {"success":true,"assignmentCount":n}
//	409 AlreadyDrawn, 422 InsufficientMembers | ConstraintInfeasible,
//	404 GroupNotFound, 503 PersistenceError
func (h *Handler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	groupID, user, ok := h.authorize(w, r, grouppolicy.CanManageDraw)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Draw(), h.Log, "manual draw")
	defer cancel()

	res, err := h.Draws.ExecuteDraw(ctx, groupID, actorFor(user))
	if err != nil {
		h.writeDrawError(w, groupID, err)
		return
	}
	writeJSON(w, http.StatusOK, drawResponse{Success: true, AssignmentCount: res.AssignmentCount})
}

// HandleReset handles POST /groups/{id}/draw/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	groupID, user, ok := h.authorize(w, r, grouppolicy.CanManageDraw)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Draw(), h.Log, "draw reset")
	defer cancel()

	removed, err := h.Draws.ResetDraw(ctx, groupID, actorFor(user))
	if err != nil {
		h.writeDrawError(w, groupID, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Success: true, Removed: removed})
}

// ServeMyAssignment handles GET /groups/{id}/draw/me. It only ever reveals
// the caller's own receiver.
func (h *Handler) ServeMyAssignment(w http.ResponseWriter, r *http.Request) {
	groupID, user, ok := h.authorize(w, r, grouppolicy.IsActiveMember)
	if !ok {
		return
	}
	uid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Draws.MyAssignment(ctx, groupID, uid)
	if err != nil {
		h.writeDrawError(w, groupID, err)
		return
	}
	writeJSON(w, http.StatusOK, myAssignmentResponse{
		Success:      true,
		GroupID:      a.GroupID.Hex(),
		ReceiverID:   a.ReceiverID.Hex(),
		ReceiverName: a.ReceiverName,
		DrawnAt:      a.DrawnAt,
	})
}

type check func(context.Context, grouppolicy.RoleLookup, *auth.SessionUser, primitive.ObjectID) (bool, error)

// authorize parses {id} and applies allowed. It writes the response and
// returns ok=false when the request must stop.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, allowed check) (primitive.ObjectID, *auth.SessionUser, bool) {
	user, signedIn := auth.CurrentUser(r)
	if !signedIn {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return primitive.NilObjectID, nil, false
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid group id")
		return primitive.NilObjectID, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	ok, err := allowed(ctx, h.Roles, user, groupID)
	if err != nil {
		h.Log.Error("draw: membership check failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, string(draws.KindPersistence), "please try again")
		return primitive.NilObjectID, nil, false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "Forbidden", "you do not have access to this group's draw")
		return primitive.NilObjectID, nil, false
	}
	return groupID, user, true
}

func actorFor(u *auth.SessionUser) draws.Actor {
	a := draws.Actor{Trigger: auditlog.TriggerManual}
	if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		a.UserID = &oid
	}
	return a
}

// StatusFor maps a draw error kind to its HTTP status.
func StatusFor(k draws.Kind) int {
	switch k {
	case draws.KindAlreadyDrawn, draws.KindNotDrawn:
		return http.StatusConflict
	case draws.KindInsufficientMembers, draws.KindConstraintInfeasible:
		return http.StatusUnprocessableEntity
	case draws.KindGroupNotFound, draws.KindNoAssignment:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *Handler) writeDrawError(w http.ResponseWriter, groupID primitive.ObjectID, err error) {
	kind := draws.KindOf(err)
	msg := "the draw could not be saved; please try again"
	var de *draws.Error
	if errors.As(err, &de) && kind != draws.KindPersistence {
		msg = de.Message
	}
	if kind == draws.KindPersistence {
		h.Log.Error("draw: persistence failure", zap.String("group_id", groupID.Hex()), zap.Error(err))
	}
	writeError(w, StatusFor(kind), string(kind), msg)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, drawResponse{Error: &errorBody{Kind: kind, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
