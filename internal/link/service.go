package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
)

// SpotifyScopes is the fixed scope set requested from Spotify.
var SpotifyScopes = []string{"user-read-private", "user-read-email", "user-library-read", "user-top-read"}

var spotifyEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// Flow drives the integrations view.
type Flow struct {
	backend Backend
	spotify *oauth2.Config
}

// NewFlow builds a flow. The Spotify app is identified by its public client
// id; the backend holds the secret and performs the token exchange.
func NewFlow(backend Backend, spotifyClientID, spotifyRedirectURL string) *Flow {
	return &Flow{
		backend: backend,
		spotify: &oauth2.Config{
			ClientID:    spotifyClientID,
			Endpoint:    spotifyEndpoint,
			RedirectURL: spotifyRedirectURL,
			Scopes:      SpotifyScopes,
		},
	}
}

// Connections lists the catalog marked with the caller's linked services and
// filtered by query. When the linked set cannot be fetched the catalog is
// still returned, with nothing marked connected.
func (f *Flow) Connections(ctx context.Context, tokens TokenSource, query string) []Integration {
	var connected []string
	token, err := tokens(ctx)
	if err == nil {
		connected, err = f.backend.Connections(ctx, token)
	}
	if err != nil {
		slog.Warn("fetch connections failed", "component", "link", "err", err)
		connected = nil
	}
	return List(connected, query)
}

// Connect returns the URL the user must be sent to in order to link name.
// Catalog entries without a handler log and return ErrUnsupported.
func (f *Flow) Connect(name string) (string, error) {
	it, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIntegration, name)
	}

	switch strings.ToLower(it.Name) {
	case "spotify":
		if f.spotify.ClientID == "" {
			return "", errors.New("link: SPOTIFY_CLIENT_ID is not set")
		}
		return f.spotify.AuthCodeURL(""), nil
	default:
		slog.Info("connecting", "component", "link", "service", it.Name)
		return "", ErrUnsupported
	}
}

// Disconnect only records the request; no provider supports unlinking yet.
func (f *Flow) Disconnect(name string) error {
	it, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownIntegration, name)
	}
	slog.Info("disconnecting", "component", "link", "service", it.Name)
	return nil
}
