// Package identity is the contract of the identity provider (credentials,
// tokens, verification mail) and a Client holding the signed-in user of one
// client instance.
package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/validation"
)

// Provider error codes, carried in errors.ErrorWithStatusCode.Code.
const (
	CodeInvalidEmail        = "auth/invalid-email"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeUserDisabled        = "auth/user-disabled"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeRequiresRecentLogin = "auth/requires-recent-login"
	CodeInvalidToken        = "auth/invalid-token"
	CodeInvalidActionCode   = "auth/invalid-action-code"
)

var codes = map[string]struct {
	status  int
	message string
}{
	CodeInvalidEmail:        {http.StatusBadRequest, "The email address is badly formatted."},
	CodeInvalidCredential:   {http.StatusUnauthorized, "Invalid email or password."},
	CodeUserNotFound:        {http.StatusUnauthorized, "There is no user record corresponding to this identifier."},
	CodeWrongPassword:       {http.StatusBadRequest, "The password is invalid."},
	CodeUserDisabled:        {http.StatusForbidden, "The user account has been disabled."},
	CodeTooManyRequests:     {http.StatusTooManyRequests, "Too many attempts. Try again later."},
	CodeEmailAlreadyInUse:   {http.StatusConflict, "The email address is already in use by another account."},
	CodeWeakPassword:        {http.StatusBadRequest, validation.MsgWeakPassword},
	CodeRequiresRecentLogin: {http.StatusForbidden, "This operation is sensitive and requires recent authentication."},
	CodeInvalidToken:        {http.StatusUnauthorized, "Invalid access token"},
	CodeInvalidActionCode:   {http.StatusBadRequest, "The code is invalid or has expired."},
}

// Error builds the provider error for code.
func Error(code string) error {
	c, ok := codes[code]
	if !ok {
		return errors.WithCode(code, code, http.StatusInternalServerError)
	}
	return errors.WithCode(code, c.message, c.status)
}

type User struct {
	Uid           domain.UserId
	Email         domain.Email
	DisplayName   domain.Username
	EmailVerified bool
}

type Credential struct {
	User    User
	Token   string
	Expires time.Time
}

// Backend is the identity provider. Token-taking calls fail with
// auth/invalid-token when the token is expired, revoked or forged.
type Backend interface {
	SignIn(ctx context.Context, email domain.Email, password domain.Password) (Credential, error)
	SignUp(ctx context.Context, email domain.Email, password domain.Password) (Credential, error)
	UpdateProfile(ctx context.Context, token string, displayName domain.Username) (User, error)
	SendEmailVerification(ctx context.Context, token string) error
	VerifyEmail(ctx context.Context, code string) error
	// Reauthenticate proves knowledge of the password, unlocking
	// UpdatePassword and VerifyBeforeUpdateEmail for a short window.
	Reauthenticate(ctx context.Context, token string, password domain.Password) error
	UpdatePassword(ctx context.Context, token string, newPassword domain.Password) error
	// VerifyBeforeUpdateEmail mails a code to newEmail; the address changes
	// once ApplyEmailChange receives that code.
	VerifyBeforeUpdateEmail(ctx context.Context, token string, newEmail domain.Email) error
	ApplyEmailChange(ctx context.Context, code string) (User, error)
	VerifyToken(ctx context.Context, token string) (User, error)
	SignOut(ctx context.Context, token string) error
}
