package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	internal_errors "github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/middleware/ratelimiter"
	"github.com/catalyst-codex/codex/shared/utils"
)

func RateLimit(rl *ratelimiter.KeyedLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, internal_errors.Validation(err.Error()))
				return
			}
			if !rl.Allow(identity) {
				utils.WriteErrorAndStatusCode(w, internal_errors.WithCode(
					"auth/too-many-requests", "Rate limit exceeded, try again later", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GlobalRateLimit(rl *ratelimiter.KeyedLimiter) func(http.Handler) http.Handler {
	return RateLimit(rl, func(r *http.Request) (string, error) { return "global", nil })
}

// GetUidFromContext keys limits by the authenticated user. Routes using it
// must sit behind NeedAuth.
func GetUidFromContext(r *http.Request) (string, error) {
	sess := GetSessionFromContext(r)
	if !sess.Authenticated() {
		return "", errors.New("Can't get user id")
	}
	return "user_" + string(sess.Uid), nil
}

// GetIP extracts the client IP from RemoteAddr only.
// X-Real-IP and X-Forwarded-For are ignored since they are client controlled.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", errors.New("invalid IP address: " + ip)
	}
	return ip, nil
}

// GetEmailFromBody extracts the email from a JSON request body and restores
// the body so the handler can read it again.
func GetEmailFromBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", errors.New("failed to read request body")
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	var data struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", errors.New("invalid request body")
	}
	if data.Email == "" {
		return "", errors.New("email field is required")
	}
	return strings.ToLower(strings.TrimSpace(data.Email)), nil
}
