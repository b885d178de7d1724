// internal/app/features/draw/routes.go
package draw

import (
	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the draw endpoints under /groups/{id}/draw.
func MountRoutes(r chi.Router, h *Handler, sm *auth.SessionManager) {
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/groups/{id}/draw", h.HandleDraw)
		pr.Post("/groups/{id}/draw/reset", h.HandleReset)
		pr.Get("/groups/{id}/draw/me", h.ServeMyAssignment)
	})
}
