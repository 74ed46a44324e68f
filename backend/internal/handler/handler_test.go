package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/catalyst-codex/codex/backend/internal/identity/local"
	"github.com/catalyst-codex/codex/backend/internal/service"
	"github.com/catalyst-codex/codex/backend/internal/session"
	"github.com/catalyst-codex/codex/backend/internal/settings"
	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/docstore/memory"
	"github.com/catalyst-codex/codex/shared/localstore"
	"github.com/catalyst-codex/codex/shared/markdown"
	mw "github.com/catalyst-codex/codex/shared/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "Secret123"

type testEnv struct {
	store   *memory.Store
	mailer  *MockSender
	handler *Handler
	router  chi.Router
}

// newTestEnv wires the handler over in-memory stores and the local identity
// backend. forum replaces the real forum service when non-nil.
func newTestEnv(t *testing.T, forum service.ForumService) *testEnv {
	t.Helper()
	store := memory.New()
	mailer := &MockSender{}
	backend := local.New(store, mailer, local.Config{
		JwtKey:       "test-key",
		JwtTTL:       time.Hour,
		ReauthWindow: time.Minute,
		CodeTTL:      time.Hour,
		BcryptCost:   bcrypt.MinCost,
	})
	t.Cleanup(backend.Stop)

	cache, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	settingsStore := settings.New(store, cache)

	categories, err := service.NewCategoryCache(16, time.Minute)
	require.NoError(t, err)
	realForum := service.NewForum(store, categories)
	if forum == nil {
		forum = realForum
	}

	factory := session.NewFactory(backend, realForum, settingsStore)
	auth := mw.NewAuth(factory, false)
	cfg := &config.Config{Public: config.Public{JwtTTL: time.Hour}}
	h := New(forum, factory, settingsStore, auth, markdown.New(), store, cfg)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/verify-email", h.VerifyEmail)
		r.Post("/account/email/confirm", h.ConfirmEmailChange)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth())
			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Get("/categories", h.GetCategories)
			r.Get("/categories/{category}", h.GetCategory)
			r.Get("/categories/{category}/threads", h.GetCategoryThreads)
			r.Get("/threads/{thread}", h.GetThread)
			r.Get("/threads/{thread}/posts", h.GetThreadPosts)
			r.Get("/users/{username}", h.GetUser)
			r.Get("/users/{username}/posts", h.GetUserPosts)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.NeedAuth())
			r.Put("/account/password", h.ChangePassword)
			r.Put("/account/email", h.ChangeEmail)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
			r.Post("/settings/refresh", h.RefreshSettings)
			r.Post("/categories/{category}/threads", h.CreateThread)
			r.Post("/threads/{thread}/posts", h.CreatePost)
		})
	})

	return &testEnv{store: store, mailer: mailer, handler: h, router: r}
}

func createRequest(t *testing.T, method, url string, body []byte, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewBuffer(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (e *testEnv) do(t *testing.T, method, url, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, createRequest(t, method, url, []byte(body), token))
	return rr
}

// register creates an account through the API and returns its access token
func (e *testEnv) register(t *testing.T, email, username string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/v1/auth/register",
		`{"email":"`+email+`","username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == mw.AccessTokenCookie {
			return c.Value
		}
	}
	t.Fatal("no access token cookie")
	return ""
}

func (e *testEnv) login(t *testing.T, email, pw string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/v1/auth/login", `{"email":"`+email+`","password":"`+pw+`"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res.AccessToken
}

var mailCodeRe = regexp.MustCompile(`[A-Z2-9]{8}`)

func (e *testEnv) lastCode(t *testing.T) (recipient, code string) {
	t.Helper()
	mail, ok := e.mailer.last()
	require.True(t, ok, "no mail sent")
	code = mailCodeRe.FindString(mail.body)
	require.NotEmpty(t, code)
	return mail.recipient, code
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
