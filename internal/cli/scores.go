package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api/response"
)

func newScoresCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scores <name>",
		Short: "Show a player's recent scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/scores/" + url.PathEscape(args[0])
			if limit > 0 {
				path += fmt.Sprintf("?limit=%d", limit)
			}

			var result []response.ScoreEntry
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries")

	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.PlayerStats

			if err := client.Get("/api/v1/stats", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newWordsCmd() *cobra.Command {
	var difficulty string
	var count int

	cmd := &cobra.Command{
		Use:   "words",
		Short: "Show word lists or pick random words",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if difficulty != "" {
				q.Set("difficulty", difficulty)
				if count > 0 {
					q.Set("count", fmt.Sprint(count))
				}
			}
			path := "/api/v1/words"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result response.Words
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, normal or hard")
	cmd.Flags().IntVar(&count, "count", 0, "Number of words to pick")

	return cmd
}
