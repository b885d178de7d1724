package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/giftbubble/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithUser returns r with u installed as the signed-in user.
func WithUser(r *http.Request, u auth.SessionUser) *http.Request {
	return auth.WithUser(r, &u)
}
