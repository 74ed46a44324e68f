package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/utils"
)

const AccessTokenCookie = "accessToken"

// SessionResolver turns a bearer token into the session it belongs to.
// Revoked or expired tokens must be rejected.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domain.Session, error)
}

type key int

const sessionKey key = 0

// Auth holds dependencies for authentication middleware
type Auth struct {
	resolver      SessionResolver
	secureCookies bool
}

func NewAuth(resolver SessionResolver, secureCookies bool) *Auth {
	return &Auth{resolver: resolver, secureCookies: secureCookies}
}

// NeedAuth rejects requests without a valid token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				utils.WriteErrorAndStatusCode(w, errors.NotAuthenticated())
				return
			}
			sess, err := a.resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.IsNotAuthenticated(err) {
					a.ClearAuthCookie(w)
				}
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalAuth populates the session when the token is valid and lets the
// request through anonymously otherwise.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := a.resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.Log.Debug("ignoring invalid token on optional auth route", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func (a *Auth) SetAuthCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    token,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Auth) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest reads the access token from the cookie (browser clients)
// or the Authorization header (API clients).
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}

func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSessionFromContext returns the caller's session, or the anonymous
// session when the request is not authenticated.
func GetSessionFromContext(r *http.Request) domain.Session {
	sess, _ := r.Context().Value(sessionKey).(domain.Session)
	return sess
}
