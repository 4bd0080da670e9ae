package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/link"
	"github.com/Vovarama1992/link-chat/internal/session"
	"github.com/Vovarama1992/link-chat/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Link web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := newProvider(ctx, cfg)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		guard := session.NewGuard(provider, store)
		chats := chat.NewRegistry(newGenerator(cfg))
		guard.OnSignOut(chats.Drop)

		backend := newBackend(cfg)
		flow := link.NewFlow(backend, cfg.Spotify.ClientID, cfg.Spotify.RedirectURL)

		h, err := web.NewHandler(guard, chats, flow, link.NewCallbackHandler(backend), cfg.CookieSecure)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           web.NewRouter(h, guard, cfg.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.Info("listening", "addr", srv.Addr, "store", cfg.SessionStore, "generator", cfg.Generator)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			slog.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
