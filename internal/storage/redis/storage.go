package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is a Redis-backed account directory and score log
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.Directory = (*Storage)(nil)
	_ storage.ScoreLog  = (*Storage)(nil)
)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = model.AccountID(uuid.NewString())
	}
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// Claim the username first so concurrent registrations cannot both win
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(account.Username), string(account.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrAccountExists
	}
	return s.client.Set(ctx, accountKey(account.ID), data, 0).Err()
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	// Look up account ID from username index
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	return s.GetAccount(ctx, model.AccountID(id))
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	exists, err := s.client.Exists(ctx, accountKey(account.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrAccountNotFound
	}

	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, accountKey(account.ID), data, 0).Err()
}

// Score operations

func (s *Storage) AppendScore(ctx context.Context, entry *model.ScoreEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := scoresKey(entry.PlayerName)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if s.cfg.MaxScoresPerPlayer > 0 {
		pipe.LTrim(ctx, key, 0, int64(s.cfg.MaxScoresPerPlayer-1))
	}
	if s.cfg.ScoreTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.ScoreTTL)
	}
	pipe.SAdd(ctx, scoredPlayersKey(), entry.PlayerName)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListScores(ctx context.Context, playerName string, limit int) ([]*model.ScoreEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.client.LRange(ctx, scoresKey(playerName), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return decodeEntries(raw)
}

func (s *Storage) PlayerStats(ctx context.Context) ([]*model.PlayerStats, error) {
	players, err := s.client.SMembers(ctx, scoredPlayersKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return []*model.PlayerStats{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(players))
	for i, name := range players {
		cmds[i] = pipe.LRange(ctx, scoresKey(name), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var all []*model.ScoreEntry
	for _, cmd := range cmds {
		entries, err := decodeEntries(cmd.Val())
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return storage.AggregateStats(all), nil
}

func decodeEntries(raw []string) ([]*model.ScoreEntry, error) {
	entries := make([]*model.ScoreEntry, 0, len(raw))
	for _, item := range raw {
		var entry model.ScoreEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
