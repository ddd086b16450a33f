package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is an in-memory account directory and score log
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	usernameIndex map[string]model.AccountID
	scores        []*model.ScoreEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.AccountID]*model.Account),
		usernameIndex: make(map[string]model.AccountID),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.Directory = (*Storage)(nil)
	_ storage.ScoreLog  = (*Storage)(nil)
)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usernameIndex[account.Username]; taken {
		return model.ErrAccountExists
	}
	if account.ID == "" {
		account.ID = model.AccountID(uuid.NewString())
	}
	stored := *account
	s.accounts[account.ID] = &stored
	s.usernameIndex[account.Username] = account.ID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	c := *account
	return &c, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return model.ErrAccountNotFound
	}
	stored := *account
	s.accounts[account.ID] = &stored
	return nil
}

// Score operations

func (s *Storage) AppendScore(ctx context.Context, entry *model.ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := *entry
	s.scores = append(s.scores, &stored)
	return nil
}

func (s *Storage) ListScores(ctx context.Context, playerName string, limit int) ([]*model.ScoreEntry, error) {
	s.mu.RLock()
	var out []*model.ScoreEntry
	for _, e := range s.scores {
		if e.PlayerName == playerName {
			c := *e
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	// Appends are chronological; reverse before the stable sort keeps ties newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	storage.SortRecentFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) PlayerStats(ctx context.Context) ([]*model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.AggregateStats(s.scores), nil
}
