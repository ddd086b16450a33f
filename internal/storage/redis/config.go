package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// MaxScoresPerPlayer caps each player's score list; 0 keeps everything
	MaxScoresPerPlayer int
	// ScoreTTL expires a player's score list after inactivity; 0 disables expiry
	ScoreTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                "redis://localhost:6379",
		PoolSize:           10,
		MinIdleConns:       2,
		MaxScoresPerPlayer: 1000,
		ScoreTTL:           0,
	}
}
