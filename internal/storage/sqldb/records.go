package sqldb

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// accountRecord is the accounts table row
type accountRecord struct {
	ID           string `gorm:"primarykey;size:36"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	Email        string `gorm:"size:255"`
	PasswordHash string `gorm:"size:72;not null"`
	Avatar       string `gorm:"size:255"`
	Color        string `gorm:"size:32"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for accountRecord
func (accountRecord) TableName() string {
	return "accounts"
}

func accountToRecord(a *model.Account) *accountRecord {
	return &accountRecord{
		ID:           string(a.ID),
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Avatar:       a.Avatar,
		Color:        a.Color,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r *accountRecord) toModel() *model.Account {
	return &model.Account{
		ID:           model.AccountID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Avatar:       r.Avatar,
		Color:        r.Color,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// scoreRecord is the scores table row
type scoreRecord struct {
	ID         string    `gorm:"primarykey;size:36"`
	PlayerName string    `gorm:"size:64;not null;index:idx_scores_player_date,priority:1"`
	RoomID     string    `gorm:"size:8"`
	Score      int       `gorm:"not null"`
	WPM        int       `gorm:"column:wpm;not null;default:0"`
	Date       time.Time `gorm:"not null;index:idx_scores_player_date,priority:2"`
}

// TableName returns the table name for scoreRecord
func (scoreRecord) TableName() string {
	return "scores"
}

func (r *scoreRecord) toModel() *model.ScoreEntry {
	return &model.ScoreEntry{
		ID:         r.ID,
		PlayerName: r.PlayerName,
		RoomID:     model.RoomID(r.RoomID),
		Score:      r.Score,
		WPM:        r.WPM,
		Date:       r.Date,
	}
}

// statsRow receives the per-player aggregate query
type statsRow struct {
	PlayerName string
	TotalGames int
	AvgScore   float64
	MaxScore   int
	AvgWPM     float64 `gorm:"column:avg_wpm"`
	MaxWPM     int     `gorm:"column:max_wpm"`
}
