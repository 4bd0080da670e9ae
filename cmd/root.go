package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Vovarama1992/link-chat/internal/config"
)

var (
	verbose   bool
	statePath string
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "link",
	Short: "Chat with Link and manage linked apps",
	Long: `Link pairs a character chat agent with your third-party accounts.

  link serve                    # run the web app
  link login --email you@x.io   # sign in from the terminal
  link chat                     # talk to Link
  link connections --search g   # list integrations`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", defaultStatePath(), "SQLite file holding the terminal session")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	slog.SetDefault(config.NewLogger(level))
	return cfg, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "link-session.db"
	}
	return filepath.Join(dir, "link", "session.db")
}
