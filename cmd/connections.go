package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Vovarama1992/link-chat/internal/link"
)

var searchQuery string

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List integrations and which ones are linked",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openCLI(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.requireSignIn(ctx); err != nil {
			return err
		}

		flow := link.NewFlow(newBackend(env.cfg), env.cfg.Spotify.ClientID, env.cfg.Spotify.RedirectURL)
		printIntegrations(cmd.OutOrStdout(), flow.Connections(ctx, env.accessToken, searchQuery))
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Print the authorization URL for an integration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flow := link.NewFlow(newBackend(cfg), cfg.Spotify.ClientID, cfg.Spotify.RedirectURL)

		target, err := flow.Connect(args[0])
		if errors.Is(err, link.ErrUnsupported) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s can't be linked yet.\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser signed in to Link:\n%s\n", target)
		return nil
	},
}

func printIntegrations(out io.Writer, list []link.Integration) {
	if len(list) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No integrations match."))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("NAME")+"\t"+headerStyle.Render("CATEGORY")+"\t"+headerStyle.Render("STATUS"))
	for _, it := range list {
		status := mutedStyle.Render("not connected")
		if it.Connected {
			status = connectedStyle.Render("connected")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", it.Name, it.Category, status)
	}
	_ = w.Flush()
}

func init() {
	connectionsCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "Filter integrations by name")
	rootCmd.AddCommand(connectionsCmd, connectCmd)
}
