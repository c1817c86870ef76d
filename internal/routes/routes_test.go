package routes

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestSetupRoutesRegistersAPISurface(t *testing.T) {
	r := chi.NewRouter()
	SetupRoutes(r)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/auth/signup"},
		{http.MethodPost, "/api/auth/change-password"},
		{http.MethodPost, "/api/auth/change-username"},
		{http.MethodPatch, "/api/moods/665f1c2ab1e5c3d4e5f60718"},
		{http.MethodGet, "/api/feed"},
		{http.MethodDelete, "/api/comments/665f1c2ab1e5c3d4e5f60718"},
		{http.MethodGet, "/ws/notifications"},
	} {
		rctx := chi.NewRouteContext()
		assert.True(t, r.Match(rctx, tc.method, tc.path), "%s %s is not routed", tc.method, tc.path)
	}
}
