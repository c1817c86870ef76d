package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHostCheckAllowsMatchingHost(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Host = "api.moodloop.app:443"
	rec := httptest.NewRecorder()

	HostCheck("api.moodloop.app")(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHostCheckRejectsOtherHost(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Host = "evil.example.com"
	rec := httptest.NewRecorder()

	HostCheck("api.moodloop.app")(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHostCheckDisabledWhenEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Host = "anything.example.com"
	rec := httptest.NewRecorder()

	HostCheck("")(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobalRateLimitEventuallyBlocks(t *testing.T) {
	blocked := false
	for i := 0; i < 50; i++ {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "192.0.2.55:1000"
		rec := httptest.NewRecorder()
		GlobalRateLimit(okHandler()).ServeHTTP(rec, r)
		if rec.Code == http.StatusTooManyRequests {
			blocked = true
			break
		}
	}
	assert.True(t, blocked, "burst should exhaust within 50 requests")
}

func TestLoginRateLimitOnlyGuardsLoginPaths(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest("GET", "/api/feed", nil)
		r.RemoteAddr = "192.0.2.77:1000"
		rec := httptest.NewRecorder()
		LoginRateLimit(okHandler()).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	blocked := false
	for i := 0; i < 10; i++ {
		r := httptest.NewRequest("POST", "/api/auth/signin", nil)
		r.RemoteAddr = "192.0.2.77:1000"
		rec := httptest.NewRecorder()
		LoginRateLimit(okHandler()).ServeHTTP(rec, r)
		if rec.Code == http.StatusTooManyRequests {
			blocked = true
			break
		}
	}
	assert.True(t, blocked, "sign-in burst should exhaust within 10 requests")
}
