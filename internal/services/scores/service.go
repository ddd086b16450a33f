package scores

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/match"
	"github.com/mcoot/typerace/internal/storage"
)

// DefaultHistoryLimit bounds History when the caller passes no limit
const DefaultHistoryLimit = 20

// ErrInvalidScore is returned for negative scores or speeds
var ErrInvalidScore = errors.New("score and wpm must not be negative")

// SubmitParams is a finished run reported by a client
type SubmitParams struct {
	RoomID      model.RoomID // optional; empty for solo practice
	DisplayName string
	Score       int
	WPM         int
}

// SubmitResult is the outcome of Submit
type SubmitResult struct {
	Entry    *model.ScoreEntry
	Recorded bool
}

// Service records submitted scores and serves history and the leaderboard
type Service struct {
	log     storage.ScoreLog
	matches *match.Controller
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a scores Service
func New(log storage.ScoreLog, matches *match.Controller, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		log:     log,
		matches: matches,
		clock:   clock,
		logger:  logger.With(slog.String("component", "scores")),
	}
}

// Submit records a finished run. When the player is in a live room the
// room's scoreboard is updated as well, and the run is appended to the log
// only if the player's result for that match has not been recorded yet.
// Recorded reports whether this call appended it.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	if p.DisplayName == "" {
		return nil, model.ErrPlayerNotFound
	}
	if p.Score < 0 || p.WPM < 0 {
		return nil, ErrInvalidScore
	}

	record := true
	if p.RoomID != "" {
		_, claimed, err := s.matches.SubmitResult(ctx, p.RoomID, p.DisplayName, p.Score, p.WPM)
		switch {
		case err == nil:
			record = claimed
		case errors.Is(err, model.ErrRoomNotFound), errors.Is(err, model.ErrPlayerNotFound):
			// The room may already be gone; the score still counts
			s.logger.Debug("score submitted outside a live room",
				slog.String("room_id", string(p.RoomID)),
				slog.String("display_name", p.DisplayName),
			)
		default:
			return nil, err
		}
	}

	entry := &model.ScoreEntry{
		PlayerName: p.DisplayName,
		RoomID:     p.RoomID,
		Score:      p.Score,
		WPM:        p.WPM,
		Date:       s.clock.Now(),
	}
	if !record {
		s.logger.Debug("match result already recorded",
			slog.String("room_id", string(p.RoomID)),
			slog.String("display_name", p.DisplayName),
		)
		return &SubmitResult{Entry: entry}, nil
	}
	if err := s.log.AppendScore(ctx, entry); err != nil {
		return nil, err
	}
	return &SubmitResult{Entry: entry, Recorded: true}, nil
}

// History returns a player's scores, most recent first
func (s *Service) History(ctx context.Context, displayName string, limit int) ([]*model.ScoreEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.log.ListScores(ctx, displayName, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*model.ScoreEntry{}
	}
	return entries, nil
}

// Leaderboard returns per-player aggregates, highest average score first
func (s *Service) Leaderboard(ctx context.Context) ([]*model.PlayerStats, error) {
	stats, err := s.log.PlayerStats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []*model.PlayerStats{}
	}
	return stats, nil
}
