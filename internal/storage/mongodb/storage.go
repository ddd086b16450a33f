package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

const scoresCollection = "scores"

// scoreDocument is the stored shape of a score entry
type scoreDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	PlayerName string             `bson:"player_name"`
	RoomID     string             `bson:"room_id"`
	Score      int                `bson:"score"`
	WPM        int                `bson:"wpm"`
	Date       time.Time          `bson:"date"`
}

// statsDocument receives the per-player aggregation
type statsDocument struct {
	PlayerName string  `bson:"_id"`
	TotalGames int     `bson:"total_games"`
	AvgScore   float64 `bson:"avg_score"`
	MaxScore   int     `bson:"max_score"`
	AvgWPM     float64 `bson:"avg_wpm"`
	MaxWPM     int     `bson:"max_wpm"`
}

// Storage is a MongoDB-backed score log
type Storage struct {
	client *mongo.Client
	scores *mongo.Collection
}

// Ensure Storage implements the interface
var _ storage.ScoreLog = (*Storage)(nil)

// Connect dials MongoDB, verifies the connection and prepares indexes
func Connect(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewWithDatabase(ctx, client, client.Database(database))
}

// NewWithDatabase creates a Storage over an existing database handle
func NewWithDatabase(ctx context.Context, client *mongo.Client, db *mongo.Database) (*Storage, error) {
	s := &Storage{
		client: client,
		scores: db.Collection(scoresCollection),
	}
	_, err := s.scores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "player_name", Value: 1},
			{Key: "date", Value: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create score index: %w", err)
	}
	return s, nil
}

// Close disconnects the client
func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Storage) AppendScore(ctx context.Context, entry *model.ScoreEntry) error {
	doc := scoreDocument{
		ID:         primitive.NewObjectID(),
		PlayerName: entry.PlayerName,
		RoomID:     string(entry.RoomID),
		Score:      entry.Score,
		WPM:        entry.WPM,
		Date:       entry.Date,
	}
	if _, err := s.scores.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}
	entry.ID = doc.ID.Hex()
	return nil
}

func (s *Storage) ListScores(ctx context.Context, playerName string, limit int) ([]*model.ScoreEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.scores.Find(ctx, bson.M{"player_name": playerName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find scores: %w", err)
	}
	var docs []scoreDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}

	out := make([]*model.ScoreEntry, len(docs))
	for i, d := range docs {
		out[i] = &model.ScoreEntry{
			ID:         d.ID.Hex(),
			PlayerName: d.PlayerName,
			RoomID:     model.RoomID(d.RoomID),
			Score:      d.Score,
			WPM:        d.WPM,
			Date:       d.Date,
		}
	}
	return out, nil
}

func (s *Storage) PlayerStats(ctx context.Context) ([]*model.PlayerStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$player_name"},
			{Key: "total_games", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avg_score", Value: bson.D{{Key: "$avg", Value: "$score"}}},
			{Key: "max_score", Value: bson.D{{Key: "$max", Value: "$score"}}},
			{Key: "avg_wpm", Value: bson.D{{Key: "$avg", Value: "$wpm"}}},
			{Key: "max_wpm", Value: bson.D{{Key: "$max", Value: "$wpm"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avg_score", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := s.scores.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scores: %w", err)
	}
	var docs []statsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	out := make([]*model.PlayerStats, len(docs))
	for i, d := range docs {
		out[i] = &model.PlayerStats{
			PlayerName: d.PlayerName,
			TotalGames: d.TotalGames,
			AvgScore:   d.AvgScore,
			MaxScore:   d.MaxScore,
			AvgWPM:     d.AvgWPM,
			MaxWPM:     d.MaxWPM,
		}
	}
	return out, nil
}
