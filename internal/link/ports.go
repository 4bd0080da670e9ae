// Package link lists third-party integrations, starts their OAuth
// authorization and completes the provider callback.
package link

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported marks a catalog entry without a connect handler.
	ErrUnsupported = errors.New("link: integration not supported yet")
	// ErrUnknownIntegration is returned for names outside the catalog.
	ErrUnknownIntegration = errors.New("link: unknown integration")
)

// Integration is one catalog entry as shown to the user.
type Integration struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Logo       string `json:"logo"`
	BrandColor string `json:"brandColor"`
	Connected  bool   `json:"connected"`
}

// Backend is the connections API of the Link backend.
type Backend interface {
	// Connections returns the lowercase names of the services the caller
	// has linked.
	Connections(ctx context.Context, accessToken string) ([]string, error)
	// ExchangeCode hands an authorization code to the backend, which
	// completes the token exchange with the provider.
	ExchangeCode(ctx context.Context, accessToken, service, code string) error
}

// TokenSource yields the bearer access token for a single call.
type TokenSource func(ctx context.Context) (string, error)
