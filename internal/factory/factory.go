package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/events/natspub"
	"github.com/mcoot/typerace/internal/realtime"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/match"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/presence"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/services/scores"
	"github.com/mcoot/typerace/internal/services/words"
	"github.com/mcoot/typerace/internal/storage"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/storage/mongodb"
	redisstorage "github.com/mcoot/typerace/internal/storage/redis"
	"github.com/mcoot/typerace/internal/storage/sqldb"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
	StorageTypeMongo  = "mongo"
)

// App contains all wired application components
type App struct {
	// Storage
	Directory storage.Directory
	ScoreLog  storage.ScoreLog

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Identities *identity.Registry
	Rooms      *room.Store
	Members    *membership.Engine
	Presence   *presence.Supervisor
	Matches    *match.Controller
	Accounts   *account.Service
	Scores     *scores.Service
	Words      *words.Service

	// Realtime
	Hub         *realtime.Hub
	Broadcaster *realtime.Broadcaster
	Gateway     *realtime.Gateway

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// DirectoryType selects the account backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	DirectoryType string
	// ScoreLogType selects the score backend ("memory", "redis", "sqlite" or "mongo")
	// If empty, follows DirectoryType
	ScoreLogType string
	// RedisConfig holds Redis connection settings (required if either type is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file for the sqlite backend
	// If empty, an in-memory database is used
	SQLitePath string
	// MongoURI and MongoDatabase are required if ScoreLogType is "mongo"
	MongoURI      string
	MongoDatabase string

	// NATSConfig mirrors every event to NATS when set
	NATSConfig *natspub.Config

	// WordsPath overrides the built-in word lists (optional)
	WordsPath string

	// Service configuration; zero values use each package's defaults
	AccountConfig  account.Config
	PresenceConfig presence.Config
	MatchConfig    match.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	backends := newBackends(cfg)
	var closers []func() error
	fail := func(err error) (*App, error) {
		for _, c := range append(backends.closers, closers...) {
			_ = c()
		}
		return nil, err
	}

	directoryType := cfg.DirectoryType
	if directoryType == "" {
		directoryType = StorageTypeMemory
	}
	scoreLogType := cfg.ScoreLogType
	if scoreLogType == "" {
		scoreLogType = directoryType
	}

	directory, err := backends.directory(directoryType)
	if err != nil {
		return fail(err)
	}
	scoreLog, err := backends.scoreLog(scoreLogType)
	if err != nil {
		return fail(err)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	wordList, err := words.Load(cfg.WordsPath, rnd)
	if err != nil {
		return fail(err)
	}

	var mirrors []events.Publisher
	if cfg.NATSConfig != nil {
		pub, nc, err := natspub.Connect(*cfg.NATSConfig, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { return nc.Drain() })
		mirrors = append(mirrors, pub)
	}

	app := newWithDependencies(dependencies{
		directory: directory,
		scoreLog:  scoreLog,
		clock:     clk,
		random:    rnd,
		words:     wordList,
		mirrors:   mirrors,
		cfg:       cfg,
		logger:    logger,
	})
	app.closers = append(backends.closers, closers...)
	return app, nil
}

// backends opens each storage backend at most once so the directory and
// score log can share a connection
type backends struct {
	cfg     Config
	memory  *memory.Storage
	redis   *redisstorage.Storage
	sqlite  *sqldb.Storage
	closers []func() error
}

func newBackends(cfg Config) *backends {
	return &backends{cfg: cfg}
}

func (b *backends) directory(kind string) (storage.Directory, error) {
	switch kind {
	case StorageTypeMemory:
		return b.openMemory(), nil
	case StorageTypeRedis:
		return b.openRedis()
	case StorageTypeSQLite:
		return b.openSQLite()
	default:
		return nil, fmt.Errorf("invalid DirectoryType %q: must be 'memory', 'redis' or 'sqlite'", kind)
	}
}

func (b *backends) scoreLog(kind string) (storage.ScoreLog, error) {
	switch kind {
	case StorageTypeMemory:
		return b.openMemory(), nil
	case StorageTypeRedis:
		return b.openRedis()
	case StorageTypeSQLite:
		return b.openSQLite()
	case StorageTypeMongo:
		if b.cfg.MongoURI == "" || b.cfg.MongoDatabase == "" {
			return nil, errors.New("MongoURI and MongoDatabase required when ScoreLogType is mongo")
		}
		store, err := mongodb.Connect(context.Background(), b.cfg.MongoURI, b.cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("invalid ScoreLogType %q: must be 'memory', 'redis', 'sqlite' or 'mongo'", kind)
	}
}

func (b *backends) openMemory() *memory.Storage {
	if b.memory == nil {
		b.memory = memory.New()
	}
	return b.memory
}

func (b *backends) openRedis() (*redisstorage.Storage, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	if b.cfg.RedisConfig == nil {
		return nil, errors.New("RedisConfig required when a storage type is redis")
	}
	store, err := redisstorage.New(*b.cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	b.redis = store
	b.closers = append(b.closers, store.Close)
	return store, nil
}

func (b *backends) openSQLite() (*sqldb.Storage, error) {
	if b.sqlite != nil {
		return b.sqlite, nil
	}
	path := b.cfg.SQLitePath
	if path == "" {
		path = ":memory:"
	}
	store, err := sqldb.Open(path)
	if err != nil {
		return nil, err
	}
	b.sqlite = store
	b.closers = append(b.closers, store.Close)
	return store, nil
}

// dependencies are the externally provided parts of an App
type dependencies struct {
	directory storage.Directory
	scoreLog  storage.ScoreLog
	clock     clock.Clock
	random    random.Random
	words     *words.Service
	mirrors   []events.Publisher
	cfg       Config
	logger    *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(d dependencies) *App {
	accountCfg := d.cfg.AccountConfig
	presenceCfg := d.cfg.PresenceConfig
	if presenceCfg.GracePeriod == 0 {
		presenceCfg = presence.DefaultConfig()
	}
	matchCfg := d.cfg.MatchConfig
	if matchCfg.TickInterval == 0 {
		matchCfg = match.DefaultConfig()
	}

	// Create services
	identities := identity.New(d.random, d.clock, d.logger)
	rooms := room.New(identities, d.clock, d.random, d.logger)
	accounts := account.New(d.directory, d.clock, d.logger, accountCfg)

	hub := realtime.NewHub(d.logger)
	broadcaster := realtime.NewBroadcaster(hub, rooms, identities, accounts, d.logger)
	publisher := append(events.Multi{broadcaster}, d.mirrors...)

	members := membership.NewEngine(rooms, identities, publisher, d.clock, d.logger)
	matches := match.NewController(matchCfg, rooms, d.scoreLog, publisher, d.clock, d.logger)
	presenceSupervisor := presence.NewSupervisor(presenceCfg, identities, rooms, members, publisher, d.clock, d.logger)
	scoreService := scores.New(d.scoreLog, matches, d.clock, d.logger)
	gateway := realtime.NewGateway(hub, identities, members, presenceSupervisor, matches, d.logger)

	return &App{
		Directory:   d.directory,
		ScoreLog:    d.scoreLog,
		Clock:       d.clock,
		Random:      d.random,
		Identities:  identities,
		Rooms:       rooms,
		Members:     members,
		Presence:    presenceSupervisor,
		Matches:     matches,
		Accounts:    accounts,
		Scores:      scoreService,
		Words:       d.words,
		Hub:         hub,
		Broadcaster: broadcaster,
		Gateway:     gateway,
	}
}

// Close drops live connections, waits for pending result writes and
// releases storage and broker connections
func (a *App) Close() error {
	a.Hub.Close()
	a.Matches.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
