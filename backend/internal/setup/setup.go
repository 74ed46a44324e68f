package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/catalyst-codex/codex/backend/internal/handler"
	"github.com/catalyst-codex/codex/backend/internal/identity/local"
	"github.com/catalyst-codex/codex/backend/internal/service"
	"github.com/catalyst-codex/codex/backend/internal/session"
	"github.com/catalyst-codex/codex/backend/internal/settings"
	"github.com/catalyst-codex/codex/backend/internal/utils/email"
	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/docstore/memory"
	"github.com/catalyst-codex/codex/shared/docstore/pg"
	"github.com/catalyst-codex/codex/shared/localstore"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/markdown"
	mw "github.com/catalyst-codex/codex/shared/middleware"
)

const revocationUpdateInterval = time.Minute

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config  *config.Config
	Store   docstore.Store
	Handler *handler.Handler
	Auth    *mw.Auth

	closers []func() error
}

// Close releases everything SetupDependencies opened, newest first.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Log.Error("failed to release dependency", "error", err)
		}
	}
	d.closers = nil
}

// OpenDocstore opens the document store selected by cfg.Public.Docstore.
func OpenDocstore(cfg *config.Config) (docstore.Store, func() error, error) {
	switch cfg.Public.Docstore {
	case "memory":
		logger.Log.Warn("using in-memory document store, data is lost on restart")
		return memory.New(), func() error { return nil }, nil
	case "pg":
		storage, err := pg.New(cfg.Private.Pg)
		if err != nil {
			return nil, nil, err
		}
		return storage, storage.Cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown docstore %q", cfg.Public.Docstore)
}

// SetupDependencies initializes all dependencies required for the application.
// Background work stops when ctx is done.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg}

	store, closeStore, err := OpenDocstore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	deps.Store = store
	deps.closers = append(deps.closers, closeStore)

	cache, err := localstore.Open(cfg.Public.LocalStorePath)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	deps.closers = append(deps.closers, cache.Close)
	settingsStore := settings.New(store, cache)

	categories, err := service.NewCategoryCache(cfg.Public.CategoryCacheSize, cfg.Public.CategoryCacheTTL)
	if err != nil {
		deps.Close()
		return nil, err
	}
	forum := service.NewForum(store, categories)

	backend := local.New(store, email.New(cfg.Private.Email), local.Config{
		JwtKey:            cfg.JwtKey(),
		JwtTTL:            cfg.JwtTTL(),
		ReauthWindow:      cfg.Public.ReauthWindow,
		CodeTTL:           cfg.Public.CodeTTL,
		AttemptsPerMinute: cfg.Public.SignInAttemptsPerMinute,
		AttemptsBurst:     cfg.Public.SignInBurst,
	})
	deps.closers = append(deps.closers, func() error {
		backend.Stop()
		return nil
	})
	if err := backend.Revocations().Update(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load revoked tokens: %w", err)
	}
	backend.Revocations().StartBackgroundUpdate(ctx, revocationUpdateInterval)

	factory := session.NewFactory(backend, forum, settingsStore)
	deps.Auth = mw.NewAuth(factory, cfg.Public.SecureCookies)
	deps.Handler = handler.New(forum, factory, settingsStore, deps.Auth, markdown.New(), store, cfg)

	return deps, nil
}
