package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api/response"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomsListCmd())
	cmd.AddCommand(newRoomsGetCmd())
	cmd.AddCommand(newRoomsCreateCmd())
	cmd.AddCommand(newRoomsUpdateCmd())
	cmd.AddCommand(roomAction("join", "Join a room", "join"))
	cmd.AddCommand(newRoomsLeaveCmd())
	cmd.AddCommand(newRoomsReadyCmd())
	cmd.AddCommand(roomAction("start", "Start a match (host only)", "start"))
	cmd.AddCommand(roomAction("reset-ready", "Clear everyone's ready flag (host only)", "reset-ready"))
	cmd.AddCommand(newRoomsKickCmd())
	cmd.AddCommand(newRoomsHostCmd())
	cmd.AddCommand(newRoomsScoreCmd())

	return cmd
}

// roomAction builds a command that POSTs to a room sub-resource and prints the room
func roomAction(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <room>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/%s", args[0], path), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List public rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.RoomSummary

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsCreateCmd() *cobra.Command {
	var name, visibility, mode string
	var duration int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and become its host",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"name":             name,
				"visibility":       visibility,
				"mode":             mode,
				"duration_seconds": duration,
			}
			var result response.Room

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Room name")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public or private")
	cmd.Flags().StringVar(&mode, "mode", "", "classic or sudden-death")
	cmd.Flags().IntVar(&duration, "duration", 0, "Match duration in seconds")

	return cmd
}

func newRoomsUpdateCmd() *cobra.Command {
	var name, visibility, mode string
	var duration int

	cmd := &cobra.Command{
		Use:   "update <room>",
		Short: "Change room settings (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("name") {
				req["name"] = name
			}
			if cmd.Flags().Changed("visibility") {
				req["visibility"] = visibility
			}
			if cmd.Flags().Changed("mode") {
				req["mode"] = mode
			}
			if cmd.Flags().Changed("duration") {
				req["duration_seconds"] = duration
			}
			if len(req) == 0 {
				return fmt.Errorf("at least one setting is required")
			}

			var result response.Room
			if err := client.Patch("/api/v1/rooms/"+args[0], req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Room name")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public or private")
	cmd.Flags().StringVar(&mode, "mode", "", "classic or sudden-death")
	cmd.Flags().IntVar(&duration, "duration", 0, "Match duration in seconds")

	return cmd
}

func newRoomsLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <room>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/leave", args[0]), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left room " + args[0])
			return nil
		},
	}
}

func newRoomsReadyCmd() *cobra.Command {
	var notReady bool

	cmd := &cobra.Command{
		Use:   "ready <room>",
		Short: "Mark yourself ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			req := map[string]bool{"ready": !notReady}
			if err := client.Put(fmt.Sprintf("/api/v1/rooms/%s/ready", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&notReady, "off", false, "Mark yourself not ready")

	return cmd
}

func newRoomsKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <room> <connection>",
		Short: "Remove a player (host only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/v1/rooms/%s/players/%s", args[0], args[1])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Kicked " + args[1])
			return nil
		},
	}
}

func newRoomsHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "host <room> <connection>",
		Short: "Hand the host role to another player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			req := map[string]string{"connection": args[1]}
			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/host", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsScoreCmd() *cobra.Command {
	var score, wpm int

	cmd := &cobra.Command{
		Use:   "score <room>",
		Short: "Submit a score for the current match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.ScoreEntry

			req := map[string]int{"score": score, "wpm": wpm}
			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/scores", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&score, "score", 0, "Score (required)")
	cmd.Flags().IntVar(&wpm, "wpm", 0, "Words per minute")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}
