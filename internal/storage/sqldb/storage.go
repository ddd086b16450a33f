package sqldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is a gorm-backed account directory and score log
type Storage struct {
	db *gorm.DB
}

// Ensure Storage implements the interfaces
var (
	_ storage.Directory = (*Storage)(nil)
	_ storage.ScoreLog  = (*Storage)(nil)
)

// Open opens (or creates) a SQLite database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm connection and migrates the schema
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&accountRecord{}, &scoreRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = model.AccountID(uuid.NewString())
	}
	var taken int64
	if err := s.db.WithContext(ctx).Model(&accountRecord{}).Where("username = ?", account.Username).Count(&taken).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken > 0 {
		return model.ErrAccountExists
	}
	// The unique index still guards against a concurrent registration
	if err := s.db.WithContext(ctx).Create(accountToRecord(account)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return s.findAccount(ctx, "id = ?", string(id))
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.findAccount(ctx, "username = ?", username)
}

func (s *Storage) findAccount(ctx context.Context, query string, arg string) (*model.Account, error) {
	var rec accountRecord
	if err := s.db.WithContext(ctx).First(&rec, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	result := s.db.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ?", string(account.ID)).
		Updates(map[string]any{
			"email":         account.Email,
			"password_hash": account.PasswordHash,
			"avatar":        account.Avatar,
			"color":         account.Color,
			"updated_at":    account.UpdatedAt,
		})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// Score operations

func (s *Storage) AppendScore(ctx context.Context, entry *model.ScoreEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	rec := &scoreRecord{
		ID:         entry.ID,
		PlayerName: entry.PlayerName,
		RoomID:     string(entry.RoomID),
		Score:      entry.Score,
		WPM:        entry.WPM,
		Date:       entry.Date,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append score: %w", err)
	}
	return nil
}

func (s *Storage) ListScores(ctx context.Context, playerName string, limit int) ([]*model.ScoreEntry, error) {
	q := s.db.WithContext(ctx).Where("player_name = ?", playerName).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []scoreRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}

	out := make([]*model.ScoreEntry, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (s *Storage) PlayerStats(ctx context.Context) ([]*model.PlayerStats, error) {
	var rows []statsRow
	err := s.db.WithContext(ctx).Model(&scoreRecord{}).
		Select("player_name, COUNT(*) AS total_games, AVG(score) AS avg_score, MAX(score) AS max_score, " +
			"AVG(wpm) AS avg_wpm, MAX(wpm) AS max_wpm").
		Group("player_name").
		Order("avg_score DESC, player_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scores: %w", err)
	}

	out := make([]*model.PlayerStats, len(rows))
	for i, r := range rows {
		out[i] = &model.PlayerStats{
			PlayerName: r.PlayerName,
			TotalGames: r.TotalGames,
			AvgScore:   r.AvgScore,
			MaxScore:   r.MaxScore,
			AvgWPM:     r.AvgWPM,
			MaxWPM:     r.MaxWPM,
		}
	}
	return out, nil
}
