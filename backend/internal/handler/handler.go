package handler

import (
	"context"

	"github.com/catalyst-codex/codex/backend/internal/identity"
	"github.com/catalyst-codex/codex/backend/internal/service"
	"github.com/catalyst-codex/codex/backend/internal/session"
	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/markdown"
	mw "github.com/catalyst-codex/codex/shared/middleware"
)

// Sessions creates per-request session providers.
type Sessions interface {
	New() *session.Provider
	Restore(ctx context.Context, token string) (*session.Provider, error)
	VerifyEmail(ctx context.Context, code string) error
	ApplyEmailChange(ctx context.Context, code string) (identity.User, error)
}

type SettingsStore interface {
	Read(ctx context.Context, uid domain.UserId) domain.UserSettings
	Fetch(ctx context.Context, sess domain.Session) (domain.UserSettings, error)
	Write(ctx context.Context, sess domain.Session, settings domain.UserSettings) (domain.UserSettings, error)
	Refresh(ctx context.Context, sess domain.Session) (domain.UserSettings, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	forum    service.ForumService
	sessions Sessions
	settings SettingsStore
	auth     *mw.Auth
	markdown *markdown.Renderer
	health   HealthChecker
	cfg      *config.Config
}

func New(forum service.ForumService, sessions Sessions, settings SettingsStore, auth *mw.Auth, md *markdown.Renderer, health HealthChecker, cfg *config.Config) *Handler {
	return &Handler{
		forum:    forum,
		sessions: sessions,
		settings: settings,
		auth:     auth,
		markdown: md,
		health:   health,
		cfg:      cfg,
	}
}
