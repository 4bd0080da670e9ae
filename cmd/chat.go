package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vovarama1992/link-chat/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Link (type /quit to leave)",
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

		s := chat.NewSession(newGenerator(env.cfg), env.idToken)
		return runChat(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat is the terminal loop: one line in, the new transcript entries out.
func runChat(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer) error {
	if err := s.Open(ctx); err != nil {
		fmt.Fprintln(out, errorStyle.Render("Disconnected: "+err.Error()))
	}
	seen := printNew(out, s.Messages(), 0)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}
		if !s.Send(ctx, line) {
			continue
		}
		// The user's own line is already on screen.
		seen = printNew(out, s.Messages(), seen+1)
	}
}

func printNew(out io.Writer, msgs []chat.Message, from int) int {
	for _, m := range msgs[from:] {
		switch {
		case m.IsError:
			fmt.Fprintf(out, "%s %s\n", agentStyle.Render("Link:"), errorStyle.Render(m.Text))
		case m.FromAgent:
			fmt.Fprintf(out, "%s %s\n", agentStyle.Render("Link:"), m.Text)
		default:
			fmt.Fprintf(out, "%s %s\n", userStyle.Render("You:"), m.Text)
		}
	}
	return len(msgs)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
