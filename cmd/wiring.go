package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Vovarama1992/link-chat/internal/ai"
	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/config"
	"github.com/Vovarama1992/link-chat/internal/identity"
	"github.com/Vovarama1992/link-chat/internal/link"
	"github.com/Vovarama1992/link-chat/internal/session"
)

// cliSessionID is the fixed id of the one terminal session in the state file.
const cliSessionID = "cli"

func openStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.StorePostgres:
		return session.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.StoreSQLite:
		path := cfg.DatabaseURL
		if path == "" {
			path = "link-sessions.db"
		}
		return session.OpenSQLite(ctx, path)
	default:
		return session.NewMemoryStore(), nil
	}
}

func openCLIStore(ctx context.Context) (session.Store, error) {
	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return session.OpenSQLite(ctx, statePath)
}

func newProvider(ctx context.Context, cfg *config.Config) (identity.Provider, error) {
	if err := cfg.RequireCognito(); err != nil {
		return nil, err
	}
	return identity.NewCognito(ctx, cfg.Cognito.Region, cfg.Cognito.UserPoolID, cfg.Cognito.ClientID, cfg.Cognito.ClientSecret)
}

func newGenerator(cfg *config.Config) chat.Generator {
	if cfg.Generator == config.GeneratorOpenAI {
		return ai.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	}
	return chat.NewRemoteGenerator(cfg.BackendURL, http.DefaultClient)
}

func newBackend(cfg *config.Config) *link.BackendClient {
	return link.NewBackendClient(cfg.BackendURL, http.DefaultClient)
}

// cliEnv is what every terminal command needs: the guard over the local
// state file.
type cliEnv struct {
	cfg   *config.Config
	guard *session.Guard
	store session.Store
}

func openCLI(ctx context.Context) (*cliEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := openCLIStore(ctx)
	if err != nil {
		return nil, err
	}
	return &cliEnv{
		cfg:   cfg,
		guard: session.NewGuard(provider, store, session.WithSessionID(cliSessionID)),
		store: store,
	}, nil
}

func (e *cliEnv) Close() error {
	return e.store.Close()
}

// requireSignIn returns the signed-in principal or a hint to run login.
func (e *cliEnv) requireSignIn(ctx context.Context) (*identity.Principal, error) {
	p := e.guard.CheckAuthState(ctx, cliSessionID)
	if p == nil {
		return nil, fmt.Errorf("not signed in: run `link login` first")
	}
	return p, nil
}

func (e *cliEnv) idToken(ctx context.Context) (string, error) {
	t, err := e.guard.Tokens(ctx, cliSessionID)
	if err != nil {
		return "", err
	}
	return t.IDToken, nil
}

func (e *cliEnv) accessToken(ctx context.Context) (string, error) {
	t, err := e.guard.Tokens(ctx, cliSessionID)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}
