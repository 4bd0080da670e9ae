// Package identity adapts the managed identity provider used to sign Link
// users in.
package identity

import (
	"context"
	"errors"
	"time"
)

// ErrValidation marks input rejected locally, before any provider call.
var ErrValidation = errors.New("validation failed")

// Tokens is the provider-issued credential set for one principal.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the tokens expire within skew of now.
// Tokens without an expiry never expire.
func (t Tokens) Expired(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.ExpiresAt)
}

// Provider is the identity provider contract.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*Tokens, error)
	SignUp(ctx context.Context, username, password string, attributes map[string]string) error
	ConfirmSignUp(ctx context.Context, username, code string) error
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error)
}

// AuthError is a provider rejection (bad password, unknown user, wrong code).
// Message is safe to show next to the form that caused it.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is an AuthError with the given code.
func HasCode(err error, code string) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}
