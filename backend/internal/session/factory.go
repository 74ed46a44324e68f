package session

import (
	"context"

	"github.com/catalyst-codex/codex/backend/internal/identity"
	"github.com/catalyst-codex/codex/shared/domain"
)

// Factory hands out one Provider per client and resolves bearer tokens for
// the auth middleware.
type Factory struct {
	backend  identity.Backend
	profiles Profiles
	settings SettingsCache
}

func NewFactory(backend identity.Backend, profiles Profiles, settings SettingsCache) *Factory {
	return &Factory{backend: backend, profiles: profiles, settings: settings}
}

// New returns a signed-out provider. The caller must Close it.
func (f *Factory) New() *Provider {
	return NewProvider(identity.NewClient(f.backend), f.profiles, f.settings)
}

// Restore returns a provider signed in with token.
func (f *Factory) Restore(ctx context.Context, token string) (*Provider, error) {
	client := identity.NewClient(f.backend)
	if _, err := client.Restore(ctx, token); err != nil {
		client.Close()
		return nil, err
	}
	return NewProvider(client, f.profiles, f.settings), nil
}

func (f *Factory) Resolve(ctx context.Context, token string) (domain.Session, error) {
	user, err := f.backend.VerifyToken(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Uid: user.Uid, Username: user.DisplayName, Email: user.Email, Token: token}, nil
}

func (f *Factory) VerifyEmail(ctx context.Context, code string) error {
	return f.backend.VerifyEmail(ctx, code)
}

func (f *Factory) ApplyEmailChange(ctx context.Context, code string) (identity.User, error) {
	return f.backend.ApplyEmailChange(ctx, code)
}
