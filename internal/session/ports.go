// Package session is the session guard: it owns signed-in sessions and is the
// only place identity tokens are read from.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/link-chat/internal/identity"
)

var (
	// ErrUnauthenticated means there is no valid session for the caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is returned by stores for unknown session ids.
	ErrNotFound = errors.New("session not found")
)

// Session is one signed-in principal and its tokens.
type Session struct {
	ID        string
	Principal identity.Principal
	Tokens    identity.Tokens
	CreatedAt time.Time
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
