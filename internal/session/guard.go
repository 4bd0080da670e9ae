package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/link-chat/internal/identity"
)

// refreshSkew refreshes tokens slightly before they expire so a token handed
// to a backend call is still valid when it arrives.
const refreshSkew = time.Minute

// Guard decides whether a caller holds a valid identity and hands out tokens
// for outbound calls.
type Guard struct {
	provider identity.Provider
	store    Store
	now      func() time.Time
	newID    func() string

	refreshMu sync.Mutex

	hooksMu   sync.RWMutex
	onSignOut []func(sessionID string)
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithSessionID pins the id given to new sessions. The CLI uses a single
// well-known id so later invocations find the session again.
func WithSessionID(id string) Option {
	return func(g *Guard) { g.newID = func() string { return id } }
}

// NewGuard builds a guard over an identity provider and a session store.
func NewGuard(provider identity.Provider, store Store, opts ...Option) *Guard {
	g := &Guard{
		provider: provider,
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnSignOut registers fn to run after a session is torn down.
func (g *Guard) OnSignOut(fn func(sessionID string)) {
	g.hooksMu.Lock()
	defer g.hooksMu.Unlock()
	g.onSignOut = append(g.onSignOut, fn)
}

// CheckAuthState returns the principal for sessionID, or nil when there is no
// valid session. It never fails: expired or unknown sessions are simply
// unauthenticated.
func (g *Guard) CheckAuthState(ctx context.Context, sessionID string) *identity.Principal {
	s, err := g.session(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			slog.Warn("auth state check failed", "component", "session", "err", err)
		}
		return nil
	}
	p := s.Principal
	return &p
}

// Tokens returns tokens scoped to the session's principal, refreshing them
// first when they are about to expire.
func (g *Guard) Tokens(ctx context.Context, sessionID string) (identity.Tokens, error) {
	s, err := g.session(ctx, sessionID)
	if err != nil {
		return identity.Tokens{}, err
	}
	return s.Tokens, nil
}

// SignIn authenticates against the provider and opens a session.
func (g *Guard) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", identity.ErrValidation)
	}

	tokens, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	principal, exp, err := identity.ParsePrincipal(tokens.IDToken)
	if err != nil {
		return nil, err
	}
	if tokens.ExpiresAt.IsZero() {
		tokens.ExpiresAt = exp
	}

	s := &Session{
		ID:        g.newID(),
		Principal: principal,
		Tokens:    *tokens,
		CreatedAt: g.now(),
	}
	if err := g.store.Put(ctx, s); err != nil {
		return nil, err
	}
	slog.Info("signed in", "component", "session", "user", principal.Username)
	return s, nil
}

// SignUp registers a new account. The email doubles as the username.
func (g *Guard) SignUp(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", identity.ErrValidation)
	}
	return g.provider.SignUp(ctx, email, password, map[string]string{"email": email})
}

// ConfirmSignUp verifies the emailed confirmation code.
func (g *Guard) ConfirmSignUp(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and confirmation code are required", identity.ErrValidation)
	}
	return g.provider.ConfirmSignUp(ctx, email, code)
}

// SignOut ends the session. Provider failures are logged; local state is
// cleared regardless.
func (g *Guard) SignOut(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	s, err := g.store.Get(ctx, sessionID)
	if err == nil && s.Tokens.AccessToken != "" {
		if err := g.provider.SignOut(ctx, s.Tokens.AccessToken); err != nil {
			slog.Warn("provider sign out failed", "component", "session", "err", err)
		}
	}
	g.destroy(ctx, sessionID)
}

func (g *Guard) session(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}
	s, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !s.Tokens.Expired(g.now(), refreshSkew) {
		return s, nil
	}
	return g.refresh(ctx, sessionID)
}

func (g *Guard) refresh(ctx context.Context, sessionID string) (*Session, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	// another request may have refreshed while we waited
	s, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !s.Tokens.Expired(g.now(), refreshSkew) {
		return s, nil
	}

	if s.Tokens.RefreshToken == "" {
		g.destroy(ctx, sessionID)
		return nil, fmt.Errorf("%w: session expired", ErrUnauthenticated)
	}
	tokens, err := g.provider.Refresh(ctx, s.Principal.Username, s.Tokens.RefreshToken)
	if err != nil {
		slog.Info("token refresh failed", "component", "session", "err", err)
		g.destroy(ctx, sessionID)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if tokens.ExpiresAt.IsZero() {
		if _, exp, err := identity.ParsePrincipal(tokens.IDToken); err == nil {
			tokens.ExpiresAt = exp
		}
	}

	s.Tokens = *tokens
	if err := g.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *Guard) destroy(ctx context.Context, sessionID string) {
	if err := g.store.Delete(ctx, sessionID); err != nil {
		slog.Warn("delete session failed", "component", "session", "err", err)
	}

	g.hooksMu.RLock()
	hooks := append([]func(string){}, g.onSignOut...)
	g.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(sessionID)
	}
}
