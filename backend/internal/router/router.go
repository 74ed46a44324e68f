package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/catalyst-codex/codex/backend/internal/setup"
	mw "github.com/catalyst-codex/codex/shared/middleware"
	"github.com/catalyst-codex/codex/shared/middleware/metrics"
	rl "github.com/catalyst-codex/codex/shared/middleware/ratelimiter"
)

// New creates and configures a chi router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit request for all endpoints combined in that group
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()
	cfg := deps.Config.Public

	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	// Enable gzip compression for all responses
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// JSON API only, no scripts/styles needed
	r.Use(mw.SecurityHeadersWithCSP(cfg.SecureCookies, mw.APIContentSecurityPolicy))

	h := deps.Handler
	authMw := deps.Auth

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(auth chi.Router) {
			// Mail sending endpoint
			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.New(1.0/10, 1, time.Hour), mw.GetEmailFromBody)) // one per 10 sec by email
				g.Use(mw.RateLimit(rl.New(1.0/10, 1, time.Hour), mw.GetIP))            // one per 10 sec by IP
				g.Use(mw.GlobalRateLimit(rl.New(100, 100, time.Hour)))                 // 100 global RPS
				g.Post("/register", h.Register)
			})

			// Login endpoint (password attempts are also limited per email by the identity backend)
			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.New(1, 1, time.Hour), mw.GetIP))   // 1 per second by IP
				g.Use(mw.GlobalRateLimit(rl.New(1000, 1000, time.Hour))) // 1000 global RPS
				g.Post("/login", h.Login)
			})

			// Emailed codes (stricter limits to prevent brute force)
			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.PerMinute(5, 5), mw.GetIP))
				g.Post("/verify-email", h.VerifyEmail)
			})

			// Logout (no rate limits)
			auth.With(authMw.OptionalAuth()).Post("/logout", h.Logout)
		})

		v1.With(mw.RateLimit(rl.PerMinute(5, 5), mw.GetIP)).Post("/account/email/confirm", h.ConfirmEmailChange)

		// Public reads, personalised when a valid token is present
		v1.Group(func(public chi.Router) {
			public.Use(authMw.OptionalAuth())
			public.Use(mw.RateLimit(rl.New(100, 100, time.Hour), mw.GetIP)) // 100 RPS per IP

			public.Get("/me", h.Me)
			public.Get("/categories", h.GetCategories)
			public.Get("/categories/{category}", h.GetCategory)
			public.Get("/categories/{category}/threads", h.GetCategoryThreads)
			public.Get("/threads/{thread}", h.GetThread)
			public.Get("/threads/{thread}/posts", h.GetThreadPosts)
			public.Get("/users/{username}", h.GetUser)
			public.Get("/users/{username}/posts", h.GetUserPosts)
		})

		// Logged-in user routes
		v1.Group(func(loggedIn chi.Router) {
			loggedIn.Use(authMw.NeedAuth())
			loggedIn.Use(mw.RateLimit(rl.New(100, 100, time.Hour), mw.GetUidFromContext)) // 100 RPS per user

			loggedIn.Get("/settings", h.GetSettings)
			loggedIn.Put("/settings", h.UpdateSettings)
			loggedIn.Post("/settings/refresh", h.RefreshSettings)

			// Password checks: 5 per minute per user
			loggedIn.With(mw.RateLimit(rl.PerMinute(5, 5), mw.GetUidFromContext)).Put("/account/password", h.ChangePassword)
			loggedIn.With(mw.RateLimit(rl.PerMinute(5, 5), mw.GetUidFromContext)).Put("/account/email", h.ChangeEmail)

			// CreateThread: 1 per minute per user
			loggedIn.With(mw.RateLimit(rl.PerMinute(1, 1), mw.GetUidFromContext)).Post("/categories/{category}/threads", h.CreateThread)
			// CreatePost: 1 per second per user
			loggedIn.With(mw.RateLimit(rl.New(1, 1, time.Hour), mw.GetUidFromContext)).Post("/threads/{thread}/posts", h.CreatePost)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return r
}
