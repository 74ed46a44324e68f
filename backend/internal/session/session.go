// Package session drives the login, registration and account flows of one
// client on top of an identity.Client and publishes its auth state.
package session

import (
	"context"
	"sync"

	"github.com/catalyst-codex/codex/backend/internal/identity"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/validation"
)

// Profiles creates the forum profile of a freshly authenticated user.
type Profiles interface {
	SetupUserProfile(ctx context.Context, sess domain.Session, username domain.Username) error
}

// SettingsCache is the local settings copy dropped on logout.
type SettingsCache interface {
	Clear(ctx context.Context, uid domain.UserId)
}

// State is a snapshot of the auth state. IsLoggedIn can only be trusted
// once Loading is false.
type State struct {
	IsLoggedIn bool
	Uid        domain.UserId
	Username   domain.Username
	Email      domain.Email
	Loading    bool
}

type Provider struct {
	client      *identity.Client
	profiles    Profiles
	settings    SettingsCache
	unsubscribe func()

	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
	closed bool
}

func NewProvider(client *identity.Client, profiles Profiles, settings SettingsCache) *Provider {
	p := &Provider{
		client:   client,
		profiles: profiles,
		settings: settings,
		state:    State{Loading: true},
		subs:     make(map[int]chan State),
	}
	p.unsubscribe = client.OnAuthStateChanged(p.onAuthStateChanged)
	return p
}

func (p *Provider) onAuthStateChanged(u *identity.User) {
	s := State{}
	if u != nil {
		s = State{IsLoggedIn: true, Uid: u.Uid, Username: u.DisplayName, Email: u.Email}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.state = s
	for _, ch := range p.subs {
		publish(ch, s)
	}
}

// publish replaces whatever snapshot ch still holds with s.
func publish(ch chan State, s State) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe returns a channel holding the latest state. Slow readers skip
// intermediate states, they never block the provider.
func (p *Provider) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.subs[id] = ch
	ch <- p.state
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
			p.mu.Unlock()
		})
	}
}

// Close stops state delivery and closes every subscription.
func (p *Provider) Close() {
	p.unsubscribe()
	p.client.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// Session is the explicit session value handed to the data-access layer.
func (p *Provider) Session() domain.Session {
	u := p.client.CurrentUser()
	if u == nil {
		return domain.Session{}
	}
	return domain.Session{Uid: u.Uid, Username: u.DisplayName, Email: u.Email, Token: p.client.IdToken()}
}

// IdToken returns the bearer token of the signed-in user, or "".
func (p *Provider) IdToken(ctx context.Context) string {
	return p.client.IdToken()
}

// Login signs in and makes sure the forum profile exists. Provider errors
// are returned as they are; DisplayMessage turns them into text.
func (p *Provider) Login(ctx context.Context, email domain.Email, password domain.Password) (identity.User, error) {
	user, err := p.client.SignIn(ctx, email, password)
	if err != nil {
		logger.Log.Debug("sign in failed", "error", err)
		return identity.User{}, err
	}
	if err := p.profiles.SetupUserProfile(ctx, p.Session(), user.DisplayName); err != nil {
		logger.Log.Error("failed to set up user profile", "uid", user.Uid, "error", err)
		return identity.User{}, err
	}
	logger.Log.Info("user logged in", "uid", user.Uid)
	return user, nil
}

// Register creates the credential, names it and creates the forum profile.
// The verification mail is best effort, a failure to send it does not undo
// the registration.
func (p *Provider) Register(ctx context.Context, email domain.Email, password domain.Password, username domain.Username) (identity.User, error) {
	if err := validation.Email(email); err != nil {
		return identity.User{}, err
	}
	if err := validation.Password(password); err != nil {
		return identity.User{}, err
	}
	username, err := validation.Username(username)
	if err != nil {
		return identity.User{}, err
	}

	if _, err := p.client.SignUp(ctx, email, password); err != nil {
		return identity.User{}, err
	}
	user, err := p.client.UpdateProfile(ctx, username)
	if err != nil {
		return identity.User{}, err
	}
	if err := p.client.SendEmailVerification(ctx); err != nil {
		logger.Log.Warn("failed to send verification email", "uid", user.Uid, "error", err)
	}
	if err := p.profiles.SetupUserProfile(ctx, p.Session(), username); err != nil {
		logger.Log.Error("failed to set up user profile", "uid", user.Uid, "error", err)
		return identity.User{}, err
	}
	logger.Log.Info("user registered", "uid", user.Uid)
	return user, nil
}

// Logout revokes the session. Whatever fails, the cached settings are
// dropped and the local state is reset.
func (p *Provider) Logout(ctx context.Context) {
	uid := p.Session().Uid
	if err := p.client.SignOut(ctx); err != nil {
		logger.Log.Warn("sign out failed", "uid", uid, "error", err)
	}
	if uid != "" {
		p.settings.Clear(ctx, uid)
	}
}

func (p *Provider) ChangePassword(ctx context.Context, current, newPassword domain.Password) error {
	if err := validation.Password(newPassword); err != nil {
		return err
	}
	if err := p.client.Reauthenticate(ctx, current); err != nil {
		return err
	}
	return p.client.UpdatePassword(ctx, newPassword)
}

// ChangeEmail mails a confirmation code to newEmail. The address changes
// once the code is applied.
func (p *Provider) ChangeEmail(ctx context.Context, current domain.Password, newEmail domain.Email) error {
	if err := validation.Email(newEmail); err != nil {
		return err
	}
	if err := p.client.Reauthenticate(ctx, current); err != nil {
		return err
	}
	return p.client.VerifyBeforeUpdateEmail(ctx, newEmail)
}
