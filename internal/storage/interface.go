package storage

import (
	"context"

	"github.com/mcoot/typerace/internal/model"
)

// Directory persists registered accounts
type Directory interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
}

// ScoreLog is the append-only record of finished match scores
type ScoreLog interface {
	AppendScore(ctx context.Context, entry *model.ScoreEntry) error
	// ListScores returns a player's entries, most recent first. A limit <= 0 returns all.
	ListScores(ctx context.Context, playerName string, limit int) ([]*model.ScoreEntry, error)
	// PlayerStats aggregates every player's entries, highest average score first
	PlayerStats(ctx context.Context) ([]*model.PlayerStats, error)
}
