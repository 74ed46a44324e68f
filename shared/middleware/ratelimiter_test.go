package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/middleware/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("allows request within rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error getting identity", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "", errors.New("email field is required") })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blocks request exceeding rate limit", func(t *testing.T) {
		rl := ratelimiter.New(0.001, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w1.Code)

		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
		assert.JSONEq(t, `{"error":"Rate limit exceeded, try again later","code":"auth/too-many-requests"}`, w2.Body.String())
	})

	t.Run("global limit ignores identity", func(t *testing.T) {
		rl := ratelimiter.New(0.001, 1, time.Minute)
		defer rl.Stop()
		handler := GlobalRateLimit(rl)(okHandler())

		first := httptest.NewRequest("GET", "/", nil)
		first.RemoteAddr = "10.0.0.1:1"
		second := httptest.NewRequest("GET", "/", nil)
		second.RemoteAddr = "10.0.0.2:1"

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, first)
		assert.Equal(t, http.StatusOK, w.Code)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, second)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

func TestGetUidFromContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, err := GetUidFromContext(req)
	assert.Error(t, err)

	req = req.WithContext(WithSession(req.Context(), domain.Session{Uid: "u1"}))
	id, err := GetUidFromContext(req)
	require.NoError(t, err)
	assert.Equal(t, "user_u1", id)
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
		wantErr    bool
	}{
		{name: "ipv4", remoteAddr: "192.168.1.100:54321", want: "192.168.1.100"},
		{name: "ipv6", remoteAddr: "[2001:db8::1]:8080", want: "2001:db8::1"},
		{name: "no port", remoteAddr: "127.0.0.1", want: "127.0.0.1"},
		{
			name:       "ignores spoofed headers",
			remoteAddr: "203.0.113.50:12345",
			headers:    map[string]string{"X-Real-IP": "10.0.0.1", "X-Forwarded-For": "10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.50",
		},
		{name: "garbage", remoteAddr: "not-an-ip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			ip, err := GetIP(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip)
		})
	}
}

func TestGetEmailFromBody(t *testing.T) {
	t.Run("does not destroy body", func(t *testing.T) {
		body := `{"email":" Test@Example.com ","password":"secretpass123"}`
		req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(body))

		email, err := GetEmailFromBody(req)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", email)

		after, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.Equal(t, body, string(after))
	})

	t.Run("missing email", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{"password":"x"}`))
		_, err := GetEmailFromBody(req)
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{`))
		_, err := GetEmailFromBody(req)
		assert.Error(t, err)
	})
}
