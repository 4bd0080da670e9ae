// Package identitytest provides an in-memory identity provider for tests.
package identitytest

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Vovarama1992/link-chat/internal/identity"
)

// MintIDToken returns an HS256-signed ID token with the usual Cognito claims.
func MintIDToken(subject, username, email string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":              subject,
		"cognito:username": username,
		"email":            email,
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("identitytest"))
	if err != nil {
		panic(err)
	}
	return raw
}

// Provider is a scriptable identity.Provider.
type Provider struct {
	mu sync.Mutex

	// Passwords maps username to password for SignIn.
	Passwords map[string]string
	// TTL is the token lifetime handed out on sign-in and refresh.
	TTL time.Duration
	Now func() time.Time

	SignInErr  error
	SignUpErr  error
	ConfirmErr error
	SignOutErr error
	RefreshErr error

	SignUps   []string
	Confirms  []string
	SignOuts  []string
	Refreshes int
}

// NewProvider returns a provider that accepts the given username/password pair.
func NewProvider(username, password string) *Provider {
	return &Provider{
		Passwords: map[string]string{username: password},
		TTL:       time.Hour,
		Now:       time.Now,
	}
}

func (p *Provider) SignIn(_ context.Context, username, password string) (*identity.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SignInErr != nil {
		return nil, p.SignInErr
	}
	if want, ok := p.Passwords[username]; !ok || want != password {
		return nil, &identity.AuthError{Code: "NotAuthorizedException", Message: "Incorrect username or password."}
	}
	return p.issue(username, "refresh-"+username), nil
}

func (p *Provider) SignUp(_ context.Context, username, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignUps = append(p.SignUps, username)
	return p.SignUpErr
}

func (p *Provider) ConfirmSignUp(_ context.Context, username, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Confirms = append(p.Confirms, username+":"+code)
	return p.ConfirmErr
}

func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignOuts = append(p.SignOuts, accessToken)
	return p.SignOutErr
}

func (p *Provider) Refresh(_ context.Context, username, refreshToken string) (*identity.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Refreshes++
	if p.RefreshErr != nil {
		return nil, p.RefreshErr
	}
	return p.issue(username, refreshToken), nil
}

func (p *Provider) issue(username, refreshToken string) *identity.Tokens {
	exp := p.Now().Add(p.TTL)
	return &identity.Tokens{
		IDToken:      MintIDToken("sub-"+username, username, username, exp),
		AccessToken:  "access-" + username,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
	}
}
