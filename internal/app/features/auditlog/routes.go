// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers GET /audit (admins) and
// GET /groups/{id}/draw/history (group owners and admins).
func MountRoutes(r chi.Router, h *Handler, sm *auth.SessionManager) {
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/groups/{id}/draw/history", h.ServeGroupHistory)
		pr.With(sm.RequireRole("admin")).Get("/audit", h.ServeList)
	})
}
