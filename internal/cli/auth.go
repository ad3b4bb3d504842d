package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCmd() *cobra.Command {
	var user, pin string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := resolvePIN(pin, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			req := map[string]string{
				"username": user,
				"pin":      pin,
			}
			var result SignupResult

			if err := client.Post("/api/auth/signup", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN (prompted for when omitted)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var (
		user, pin string
		remember  bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := resolvePIN(pin, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			req := map[string]any{
				"username":   user,
				"pin":        pin,
				"rememberMe": remember,
			}
			var result LoginResult

			token, err := client.PostForToken("/api/auth/login", req, &result)
			if err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN (prompted for when omitted)")
	cmd.Flags().BoolVar(&remember, "remember", false, "Keep the session for 7 days instead of 1 hour")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MessageResult

			if err := client.Post("/api/auth/logout", nil, &result); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatusResult

			if err := client.Get("/api/auth/status", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask a gateway who the stored session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatusResult

			if err := client.Get("/api/auth/whoami", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
