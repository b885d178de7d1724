// internal/app/features/cron/routes.go
package cron

import (
	"net/http"

	"github.com/dalemusser/giftbubble/internal/app/system/cronauth"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers POST /cron/draws behind the shared-secret check.
// onAuthFail is called for each rejected request.
func MountRoutes(r chi.Router, h *Handler, v *cronauth.Verifier, onAuthFail func(*http.Request)) {
	r.With(v.Require(onAuthFail)).Post("/cron/draws", h.HandleSweep)
}
