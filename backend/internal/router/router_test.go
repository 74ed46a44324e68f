package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/catalyst-codex/codex/backend/internal/setup"
	"github.com/catalyst-codex/codex/shared/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	cfg := &config.Config{
		Public: config.Public{
			HttpPort:          8080,
			JwtTTL:            time.Hour,
			ReauthWindow:      time.Minute,
			CodeTTL:           time.Hour,
			Docstore:          "memory",
			LocalStorePath:    filepath.Join(t.TempDir(), "local.db"),
			AllowedOrigins:    []string{"http://localhost:8081"},
			CategoryCacheSize: 16,
			CategoryCacheTTL:  time.Minute,
		},
		Private: config.Private{JwtKey: "test-key"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deps, err := setup.SetupDependencies(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return New(deps)
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/me", http.StatusOK},
		{http.MethodGet, "/v1/categories", http.StatusOK},
		{http.MethodGet, "/v1/categories/missing", http.StatusNotFound},
		{http.MethodGet, "/v1/threads/missing/posts", http.StatusNotFound},
		{http.MethodGet, "/v1/settings", http.StatusUnauthorized},
		{http.MethodPost, "/v1/threads/t1/posts", http.StatusUnauthorized},
		{http.MethodPost, "/v1/categories/c1/threads", http.StatusUnauthorized},
		{http.MethodPut, "/v1/account/password", http.StatusUnauthorized},
		{http.MethodPost, "/v1/auth/logout", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rr.Header().Get("Content-Security-Policy"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/categories", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:8081", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRegisterIsRateLimitedByEmail(t *testing.T) {
	r := newTestRouter(t)
	body := `{"email":"alice@example.com","username":"alice","password":"Secret123"}`

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body))
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:1234"), "same email from another address")
}
