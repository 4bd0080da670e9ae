package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	confirmCode  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session for later commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openCLI(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		password, err := passwordFrom(cmd.InOrStdin(), cmd.OutOrStdout(), authPassword)
		if err != nil {
			return err
		}
		s, err := env.guard.SignIn(ctx, authEmail, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", connectedStyle.Render(s.Principal.Username))
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openCLI(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		password, err := passwordFrom(cmd.InOrStdin(), cmd.OutOrStdout(), authPassword)
		if err != nil {
			return err
		}
		if err := env.guard.SignUp(ctx, authEmail, password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Check your email for a confirmation code, then run `link confirm`.")
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a new account with the emailed code",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openCLI(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.guard.ConfirmSignUp(ctx, authEmail, confirmCode); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Account confirmed. Run `link login` to sign in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openCLI(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		env.guard.SignOut(ctx, cliSessionID)
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

// passwordFrom returns flag when set and otherwise reads one line from in.
func passwordFrom(in io.Reader, out io.Writer, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd, confirmCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		_ = c.MarkFlagRequired("email")
	}
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	signupCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	confirmCmd.Flags().StringVar(&confirmCode, "code", "", "Confirmation code")
	_ = confirmCmd.MarkFlagRequired("code")

	rootCmd.AddCommand(loginCmd, signupCmd, confirmCmd, logoutCmd)
}
