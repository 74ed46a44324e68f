// Package validation holds the form rules shared by the HTTP handlers and
// the session and forum layers, so a request is rejected before any network
// call and again before any write.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	internal_errors "github.com/catalyst-codex/codex/shared/errors"
	"github.com/go-playground/validator/v10"
)

const (
	MaxUsernameLen = 32
	MaxTitleLen    = 200
	MaxContentLen  = 20000
	MinPasswordLen = 8
)

const (
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgWeakPassword     = "Password must be at least 8 characters long, include an uppercase letter and a number."
	MsgUsernameRequired = "Username is required."
	MsgUsernameTooLong  = "Username must be at most 32 characters."
	MsgTitleRequired    = "Title is required."
	MsgTitleTooLong     = "Title must be at most 200 characters."
	MsgContentRequired  = "Content is required."
	MsgContentTooLong   = "Content must be at most 20000 characters."
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsStrongPassword reports whether s has at least 8 characters, an uppercase
// letter and a digit.
func IsStrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < MinPasswordLen {
		return false
	}
	var upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && digit
}

func Email(s string) error {
	if !IsEmail(s) {
		return internal_errors.Validation(MsgInvalidEmail)
	}
	return nil
}

func Password(s string) error {
	if !IsStrongPassword(s) {
		return internal_errors.Validation(MsgWeakPassword)
	}
	return nil
}

// Username returns the trimmed username or a validation error.
func Username(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", internal_errors.Validation(MsgUsernameRequired)
	case utf8.RuneCountInString(s) > MaxUsernameLen:
		return "", internal_errors.Validation(MsgUsernameTooLong)
	}
	return s, nil
}

func Title(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", internal_errors.Validation(MsgTitleRequired)
	case utf8.RuneCountInString(s) > MaxTitleLen:
		return "", internal_errors.Validation(MsgTitleTooLong)
	}
	return s, nil
}

func Content(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", internal_errors.Validation(MsgContentRequired)
	case utf8.RuneCountInString(s) > MaxContentLen:
		return "", internal_errors.Validation(MsgContentTooLong)
	}
	return s, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the "email_addr" and
// "strong_password" tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("email_addr", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		})
		validate.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
	})
	return validate
}

// Message turns a validator error into the user-facing text of its first
// failing field.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Required fields missing"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email_addr":
		return MsgInvalidEmail
	case "strong_password":
		return MsgWeakPassword
	case "required":
		return fe.Field() + " is required"
	case "min", "max":
		return fe.Field() + " is out of range"
	}
	return "Invalid " + fe.Field()
}
