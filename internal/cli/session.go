package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api/response"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session identity commands",
	}

	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionEndCmd())
	cmd.AddCommand(newSessionPageCmd())

	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var name string
	var asAccount bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session as a guest or as the logged in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			switch {
			case asAccount:
				if cfg.AccessToken == "" {
					return fmt.Errorf("not logged in; run 'typerace account login' first")
				}
				req["access_token"] = cfg.AccessToken
			case name != "":
				req["display_name"] = name
			default:
				return fmt.Errorf("--name or --account is required")
			}

			var result response.SessionResponse
			if err := client.Post("/api/v1/sessions", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Guest display name")
	cmd.Flags().BoolVar(&asAccount, "account", false, "Use the saved account access token")

	return cmd
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Session

			if err := client.Get("/api/v1/sessions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Log out and leave any room",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A stale token is still cleared locally
			if err := client.Delete("/api/v1/sessions"); err != nil && !IsStatus(err, http.StatusUnauthorized) {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Session ended")
			return nil
		},
	}
}

func newSessionPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <room-selection|room|game>",
		Short: "Record which page the session is on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Put("/api/v1/sessions/page", map[string]string{"page": args[0]}, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Page set to " + args[0])
			return nil
		},
	}
}
