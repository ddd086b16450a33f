package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.MaxScoresPerPlayer = 3
	cfg.ScoreTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Account tests

func (s *StorageSuite) TestCreateAndGetAccount() {
	account := &model.Account{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Avatar:       "cat",
		Color:        "red",
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	err := s.storage.CreateAccount(s.ctx, account)
	s.Require().NoError(err)
	s.NotEmpty(account.ID)

	retrieved, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(account.ID, retrieved.ID)
	s.Equal("cat", retrieved.Avatar)
	s.True(account.CreatedAt.Equal(retrieved.CreatedAt))

	s.True(s.mini.Exists(usernameIndexKey("alice")))
}

func (s *StorageSuite) TestCreateDuplicateUsername() {
	_ = s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice"})

	err := s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice"})
	s.ErrorIs(err, model.ErrAccountExists)
}

func (s *StorageSuite) TestGetAccountNotFound() {
	_, err := s.storage.GetAccount(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.storage.GetAccountByUsername(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestUpdateAccount() {
	account := &model.Account{Username: "alice", Color: "red"}
	_ = s.storage.CreateAccount(s.ctx, account)

	account.Color = "green"
	s.Require().NoError(s.storage.UpdateAccount(s.ctx, account))

	retrieved, _ := s.storage.GetAccount(s.ctx, account.ID)
	s.Equal("green", retrieved.Color)

	s.ErrorIs(s.storage.UpdateAccount(s.ctx, &model.Account{ID: "ghost"}), model.ErrAccountNotFound)
}

// Score tests

func (s *StorageSuite) TestAppendAndListScores() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range 4 {
		err := s.storage.AppendScore(s.ctx, &model.ScoreEntry{
			PlayerName: "alice",
			RoomID:     "ABCDE",
			Score:      i * 10,
			Date:       base.Add(time.Duration(i) * time.Minute),
		})
		s.Require().NoError(err)
	}

	all, err := s.storage.ListScores(s.ctx, "alice", 0)
	s.Require().NoError(err)
	// Trimmed to the newest three
	s.Require().Len(all, 3)
	s.Equal(30, all[0].Score)
	s.Equal(10, all[2].Score)

	limited, err := s.storage.ListScores(s.ctx, "alice", 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(30, limited[0].Score)
}

func (s *StorageSuite) TestScoreListHasTTL() {
	_ = s.storage.AppendScore(s.ctx, &model.ScoreEntry{PlayerName: "alice", Score: 1})

	s.Equal(time.Hour, s.mini.TTL(scoresKey("alice")))
}

func (s *StorageSuite) TestListScoresUnknownPlayer() {
	entries, err := s.storage.ListScores(s.ctx, "nobody", 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *StorageSuite) TestPlayerStats() {
	for _, e := range []model.ScoreEntry{
		{PlayerName: "alice", Score: 10, WPM: 40},
		{PlayerName: "alice", Score: 30, WPM: 60},
		{PlayerName: "bob", Score: 50, WPM: 90},
	} {
		s.Require().NoError(s.storage.AppendScore(s.ctx, &e))
	}

	stats, err := s.storage.PlayerStats(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)

	s.Equal("bob", stats[0].PlayerName)
	s.Equal(1, stats[0].TotalGames)
	s.Equal("alice", stats[1].PlayerName)
	s.Equal(2, stats[1].TotalGames)
	s.InDelta(20.0, stats[1].AvgScore, 0.001)
	s.Equal(60, stats[1].MaxWPM)
}

func (s *StorageSuite) TestPlayerStatsEmpty() {
	stats, err := s.storage.PlayerStats(s.ctx)
	s.Require().NoError(err)
	s.Empty(stats)
}
