package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr only", "", "", "203.0.113.7:52100", "203.0.113.7"},
		{"x-real-ip wins over remote", "", "198.51.100.3", "203.0.113.7:52100", "198.51.100.3"},
		{"single forwarded-for", "198.51.100.9", "", "203.0.113.7:52100", "198.51.100.9"},
		{"first forwarded-for hop", "198.51.100.9, 10.0.0.1", "198.51.100.3", "203.0.113.7:52100", "198.51.100.9"},
		{"forwarded-for trims spaces", "  198.51.100.9  ", "", "203.0.113.7:52100", "198.51.100.9"},
		{"unparseable remote passes through", "", "", "bogus", "bogus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				r.Header.Set("X-Real-IP", tc.xri)
			}
			assert.Equal(t, tc.want, getClientIP(r))
		})
	}
}

func TestRateLimitMiddlewareScopedToAuth(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, 2)
	mw := rateLimitMiddleware(limiter, "/api/v1/auth/", slog.New(slog.DiscardHandler))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path string) int {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = "203.0.113.7:52100"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/auth/login"))
	assert.Equal(t, http.StatusOK, do("/api/v1/auth/login"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/v1/auth/login"))

	// Routes outside the credential surface are never limited, even for
	// a client that has exhausted its auth budget.
	for range 5 {
		assert.Equal(t, http.StatusOK, do("/api/v1/workspaces"))
	}
}
