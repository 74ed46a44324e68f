// Package local is an identity.Backend that keeps accounts in the document
// store, hashes passwords with bcrypt and issues signed JWT access tokens.
package local

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/catalyst-codex/codex/backend/internal/identity"
	"github.com/catalyst-codex/codex/backend/internal/utils/email"
	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/jwt"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/middleware/ratelimiter"
	"github.com/catalyst-codex/codex/shared/validation"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	JwtKey       string
	JwtTTL       time.Duration
	ReauthWindow time.Duration
	CodeTTL      time.Duration

	// password attempts per email (sign-in) and per uid (re-authentication)
	AttemptsPerMinute float64
	AttemptsBurst     float64

	BcryptCost int // bcrypt.DefaultCost when zero
}

type account struct {
	Email         domain.Email     `json:"email"`
	PasswordHash  string           `json:"passwordHash"`
	DisplayName   domain.Username  `json:"displayName"`
	EmailVerified bool             `json:"emailVerified"`
	Disabled      bool             `json:"disabled"`
	CreatedAt     domain.Timestamp `json:"createdAt"`
}

func (a account) user(uid domain.UserId) identity.User {
	return identity.User{Uid: uid, Email: a.Email, DisplayName: a.DisplayName, EmailVerified: a.EmailVerified}
}

type Backend struct {
	store    docstore.Store
	jwt      *jwt.Jwt
	mailer   email.Sender
	revoked  *RevocationList
	attempts *ratelimiter.KeyedLimiter
	codes    *codeBook

	reauthWindow time.Duration
	bcryptCost   int
	now          func() time.Time

	// serializes the email uniqueness check with the write that depends on it
	emailMu sync.Mutex

	mu       sync.Mutex
	reauthAt map[string]time.Time // jti -> last proof of password
}

func New(store docstore.Store, mailer email.Sender, cfg Config) *Backend {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cfg.AttemptsPerMinute <= 0 {
		cfg.AttemptsPerMinute = 10
	}
	if cfg.AttemptsBurst <= 0 {
		cfg.AttemptsBurst = 5
	}
	return &Backend{
		store:        store,
		jwt:          jwt.New(cfg.JwtKey, cfg.JwtTTL),
		mailer:       mailer,
		revoked:      NewRevocationList(store),
		attempts:     ratelimiter.PerMinute(cfg.AttemptsPerMinute, cfg.AttemptsBurst),
		codes:        newCodeBook(cfg.CodeTTL),
		reauthWindow: cfg.ReauthWindow,
		bcryptCost:   cost,
		now:          time.Now,
		reauthAt:     make(map[string]time.Time),
	}
}

// Revocations exposes the revocation list so it can be refreshed in the background.
func (b *Backend) Revocations() *RevocationList {
	return b.revoked
}

func (b *Backend) Stop() {
	b.attempts.Stop()
}

func normalizeEmail(e domain.Email) domain.Email {
	return strings.ToLower(strings.TrimSpace(e))
}

func (b *Backend) SignIn(ctx context.Context, addr domain.Email, password domain.Password) (identity.Credential, error) {
	addr = normalizeEmail(addr)
	if !validation.IsEmail(addr) {
		return identity.Credential{}, identity.Error(identity.CodeInvalidEmail)
	}
	if !b.attempts.Allow("signin:" + addr) {
		return identity.Credential{}, identity.Error(identity.CodeTooManyRequests)
	}

	uid, acc, found, err := b.findByEmail(ctx, addr)
	if err != nil {
		return identity.Credential{}, err
	}
	// unknown email and wrong password look the same to the caller
	if !found || bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return identity.Credential{}, identity.Error(identity.CodeInvalidCredential)
	}
	if acc.Disabled {
		return identity.Credential{}, identity.Error(identity.CodeUserDisabled)
	}
	b.attempts.Reset("signin:" + addr)
	return b.issue(uid, acc)
}

func (b *Backend) SignUp(ctx context.Context, addr domain.Email, password domain.Password) (identity.Credential, error) {
	addr = normalizeEmail(addr)
	if !validation.IsEmail(addr) {
		return identity.Credential{}, identity.Error(identity.CodeInvalidEmail)
	}
	if !validation.IsStrongPassword(password) {
		return identity.Credential{}, identity.Error(identity.CodeWeakPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.bcryptCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return identity.Credential{}, err
	}

	b.emailMu.Lock()
	defer b.emailMu.Unlock()

	_, _, found, err := b.findByEmail(ctx, addr)
	if err != nil {
		return identity.Credential{}, err
	}
	if found {
		return identity.Credential{}, identity.Error(identity.CodeEmailAlreadyInUse)
	}

	acc := account{Email: addr, PasswordHash: string(hash), CreatedAt: domain.NewTimestamp(b.now())}
	uid, err := b.store.Add(ctx, domain.AccountsCollection, acc)
	if err != nil {
		return identity.Credential{}, fmt.Errorf("failed to create account: %w", err)
	}
	logger.Log.Info("account created", "uid", uid)
	return b.issue(uid, acc)
}

func (b *Backend) UpdateProfile(ctx context.Context, token string, displayName domain.Username) (identity.User, error) {
	claims, acc, err := b.authenticate(ctx, token)
	if err != nil {
		return identity.User{}, err
	}
	if err := b.store.Update(ctx, domain.AccountsCollection, claims.Uid, map[string]any{"displayName": displayName}); err != nil {
		return identity.User{}, b.accountWriteError(err)
	}
	acc.DisplayName = displayName
	return acc.user(claims.Uid), nil
}

func (b *Backend) SendEmailVerification(ctx context.Context, token string) error {
	claims, acc, err := b.authenticate(ctx, token)
	if err != nil {
		return err
	}
	code := b.codes.issue(verifyEmailCode, claims.Uid, "")
	return b.mailer.Send(acc.Email, "Please confirm your email address", codeMail(code))
}

func (b *Backend) VerifyEmail(ctx context.Context, code string) error {
	p, ok := b.codes.redeem(verifyEmailCode, strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return identity.Error(identity.CodeInvalidActionCode)
	}
	if err := b.store.Update(ctx, domain.AccountsCollection, p.uid, map[string]any{"emailVerified": true}); err != nil {
		return b.accountWriteError(err)
	}
	return nil
}

func (b *Backend) Reauthenticate(ctx context.Context, token string, password domain.Password) error {
	claims, acc, err := b.authenticate(ctx, token)
	if err != nil {
		return err
	}
	if !b.attempts.Allow("reauth:" + claims.Uid) {
		return identity.Error(identity.CodeTooManyRequests)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return identity.Error(identity.CodeWrongPassword)
	}
	b.attempts.Reset("reauth:" + claims.Uid)
	b.markRecentLogin(claims.Id)
	return nil
}

func (b *Backend) UpdatePassword(ctx context.Context, token string, newPassword domain.Password) error {
	claims, _, err := b.authenticate(ctx, token)
	if err != nil {
		return err
	}
	if !validation.IsStrongPassword(newPassword) {
		return identity.Error(identity.CodeWeakPassword)
	}
	if !b.recentLogin(claims.Id) {
		return identity.Error(identity.CodeRequiresRecentLogin)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), b.bcryptCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return err
	}
	if err := b.store.Update(ctx, domain.AccountsCollection, claims.Uid, map[string]any{"passwordHash": string(hash)}); err != nil {
		return b.accountWriteError(err)
	}
	logger.Log.Info("password updated", "uid", claims.Uid)
	return nil
}

func (b *Backend) VerifyBeforeUpdateEmail(ctx context.Context, token string, newEmail domain.Email) error {
	claims, _, err := b.authenticate(ctx, token)
	if err != nil {
		return err
	}
	newEmail = normalizeEmail(newEmail)
	if !validation.IsEmail(newEmail) {
		return identity.Error(identity.CodeInvalidEmail)
	}
	if !b.recentLogin(claims.Id) {
		return identity.Error(identity.CodeRequiresRecentLogin)
	}
	_, _, found, err := b.findByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if found {
		return identity.Error(identity.CodeEmailAlreadyInUse)
	}
	code := b.codes.issue(changeEmailCode, claims.Uid, newEmail)
	return b.mailer.Send(newEmail, "Confirm your new email address", codeMail(code))
}

func (b *Backend) ApplyEmailChange(ctx context.Context, code string) (identity.User, error) {
	p, ok := b.codes.redeem(changeEmailCode, strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return identity.User{}, identity.Error(identity.CodeInvalidActionCode)
	}

	b.emailMu.Lock()
	defer b.emailMu.Unlock()

	owner, _, found, err := b.findByEmail(ctx, p.newEmail)
	if err != nil {
		return identity.User{}, err
	}
	if found && owner != p.uid {
		return identity.User{}, identity.Error(identity.CodeEmailAlreadyInUse)
	}
	if err := b.store.Update(ctx, domain.AccountsCollection, p.uid, map[string]any{"email": p.newEmail, "emailVerified": true}); err != nil {
		return identity.User{}, b.accountWriteError(err)
	}
	acc, err := b.account(ctx, p.uid)
	if err != nil {
		return identity.User{}, err
	}
	logger.Log.Info("email changed", "uid", p.uid)
	return acc.user(p.uid), nil
}

func (b *Backend) VerifyToken(ctx context.Context, token string) (identity.User, error) {
	claims, acc, err := b.authenticate(ctx, token)
	if err != nil {
		return identity.User{}, err
	}
	return acc.user(claims.Uid), nil
}

// SignOut revokes the token until it would have expired anyway.
func (b *Backend) SignOut(ctx context.Context, token string) error {
	claims, err := b.jwt.DecodeToken(token)
	if err != nil {
		return err
	}
	if err := b.revoked.Revoke(ctx, claims.Id, claims.Expires); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.reauthAt, claims.Id)
	b.mu.Unlock()
	return nil
}

func (b *Backend) issue(uid domain.UserId, acc account) (identity.Credential, error) {
	token, claims, err := b.jwt.NewToken(uid, acc.Email, acc.DisplayName)
	if err != nil {
		return identity.Credential{}, err
	}
	// a fresh sign-in counts as a recent login
	b.markRecentLogin(claims.Id)
	return identity.Credential{User: acc.user(uid), Token: token, Expires: claims.Expires}, nil
}

// authenticate decodes token and loads the account behind it. Accounts are
// read on every call so that disabling takes effect immediately.
func (b *Backend) authenticate(ctx context.Context, token string) (jwt.Claims, account, error) {
	if token == "" {
		return jwt.Claims{}, account{}, identity.Error(identity.CodeInvalidToken)
	}
	claims, err := b.jwt.DecodeToken(token)
	if err != nil {
		return jwt.Claims{}, account{}, err
	}
	if b.revoked.IsRevoked(claims.Id) {
		return jwt.Claims{}, account{}, identity.Error(identity.CodeInvalidToken)
	}
	acc, err := b.account(ctx, claims.Uid)
	if err != nil {
		return jwt.Claims{}, account{}, err
	}
	if acc.Disabled {
		return jwt.Claims{}, account{}, identity.Error(identity.CodeUserDisabled)
	}
	return claims, acc, nil
}

func (b *Backend) account(ctx context.Context, uid domain.UserId) (account, error) {
	doc, err := b.store.Get(ctx, domain.AccountsCollection, uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return account{}, identity.Error(identity.CodeUserNotFound)
		}
		return account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return docstore.Decode[account](doc)
}

func (b *Backend) findByEmail(ctx context.Context, addr domain.Email) (domain.UserId, account, bool, error) {
	docs, err := b.store.Query(ctx, docstore.Collection(domain.AccountsCollection).Where("email", addr).WithLimit(1))
	if err != nil {
		return "", account{}, false, fmt.Errorf("failed to look up account: %w", err)
	}
	if len(docs) == 0 {
		return "", account{}, false, nil
	}
	acc, err := docstore.Decode[account](docs[0])
	if err != nil {
		return "", account{}, false, err
	}
	return docs[0].ID, acc, true, nil
}

func (b *Backend) accountWriteError(err error) error {
	if errors.IsNotFound(err) {
		return identity.Error(identity.CodeUserNotFound)
	}
	return fmt.Errorf("failed to update account: %w", err)
}

func (b *Backend) markRecentLogin(jti string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for id, at := range b.reauthAt {
		if now.Sub(at) > b.reauthWindow {
			delete(b.reauthAt, id)
		}
	}
	b.reauthAt[jti] = now
}

func (b *Backend) recentLogin(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.reauthAt[jti]
	return ok && b.now().Sub(at) <= b.reauthWindow
}

func codeMail(code string) string {
	return fmt.Sprintf(`
		Hello,

		Your confirmation code below

		%s

		If you did not request this, please ignore this email.
	`, code)
}
