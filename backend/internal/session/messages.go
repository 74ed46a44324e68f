package session

import (
	"errors"

	"github.com/catalyst-codex/codex/backend/internal/identity"
	internal_errors "github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/validation"
)

const (
	DefaultLoginMessage   = "Login failed. Please check your credentials."
	DefaultAccountMessage = "Unexpected error occurred."
	WrongCurrentPassword  = "Current password is incorrect."
)

var loginMessages = map[string]string{
	identity.CodeUserNotFound:    "No account found with this email address.",
	identity.CodeWrongPassword:   "Incorrect password.",
	identity.CodeInvalidEmail:    validation.MsgInvalidEmail,
	identity.CodeUserDisabled:    "This account has been disabled.",
	identity.CodeTooManyRequests: "Too many login attempts. Please try again later.",
}

// DisplayMessage is the text shown for a failed login.
func DisplayMessage(err error) string {
	if msg, ok := loginMessages[internal_errors.Code(err)]; ok {
		return msg
	}
	return messageOr(err, DefaultLoginMessage)
}

// ReauthMessage is the text shown for a failed password or email change.
func ReauthMessage(err error) string {
	switch internal_errors.Code(err) {
	case identity.CodeWrongPassword, identity.CodeInvalidCredential:
		return WrongCurrentPassword
	}
	return messageOr(err, DefaultAccountMessage)
}

func messageOr(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var e *internal_errors.ErrorWithStatusCode
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
