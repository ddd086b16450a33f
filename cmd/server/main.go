package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/events/natspub"
	"github.com/mcoot/typerace/internal/factory"
	"github.com/mcoot/typerace/internal/services/account"
	redisstorage "github.com/mcoot/typerace/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := configFromEnv(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Identities: app.Identities,
		Rooms:      app.Rooms,
		Members:    app.Members,
		Presence:   app.Presence,
		Matches:    app.Matches,
		Accounts:   app.Accounts,
		Scores:     app.Scores,
		Words:      app.Words,
		Gateway:    app.Gateway,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(app.Hub.Close)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
		return app.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// configFromEnv builds the factory config from environment variables
func configFromEnv(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		Logger:        logger,
		DirectoryType: os.Getenv("DIRECTORY"),
		ScoreLogType:  os.Getenv("SCORE_LOG"),
		SQLitePath:    os.Getenv("SQLITE_PATH"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "typerace"),
		WordsPath:     os.Getenv("WORDS_FILE"),
	}

	// Configure Redis if either store uses it
	if cfg.DirectoryType == factory.StorageTypeRedis || cfg.ScoreLogType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		if url := os.Getenv("REDIS_URL"); url != "" {
			redisCfg.URL = url
		}
		cfg.RedisConfig = &redisCfg
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		natsCfg := natspub.DefaultConfig()
		natsCfg.URL = url
		cfg.NATSConfig = &natsCfg
	}

	cfg.AccountConfig = account.DefaultConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.AccountConfig.Secret = secret
	} else {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
