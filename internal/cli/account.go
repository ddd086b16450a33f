package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api/response"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Registered account commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountMeCmd())
	cmd.AddCommand(newAccountUpdateCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var user, pass, email, avatar, color string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"password": pass,
				"email":    email,
				"avatar":   avatar,
				"color":    color,
			}
			var result response.Account

			if err := client.Post("/api/v1/accounts", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar name")
	cmd.Flags().StringVar(&color, "color", "", "Display color")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result response.LoginResponse

			if err := client.Post("/api/v1/accounts/login", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveAccessToken(result.AccessToken); err != nil {
				return fmt.Errorf("failed to save access token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Account

			if err := client.WithToken(cfg.AccessToken).Get("/api/v1/accounts/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAccountUpdateCmd() *cobra.Command {
	var avatar, color string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change avatar or color",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if cmd.Flags().Changed("avatar") {
				req["avatar"] = avatar
			}
			if cmd.Flags().Changed("color") {
				req["color"] = color
			}
			if len(req) == 0 {
				return fmt.Errorf("--avatar or --color is required")
			}

			var result response.Account
			if err := client.WithToken(cfg.AccessToken).Patch("/api/v1/accounts/me", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar name")
	cmd.Flags().StringVar(&color, "color", "", "Display color")

	return cmd
}
