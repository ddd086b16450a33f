// Package natspub mirrors game events onto a NATS subject hierarchy so other
// processes can observe rooms without holding a websocket.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
)

const (
	// SubjectPrefix roots every mirrored subject
	SubjectPrefix = "typerace"
	// LobbyToken replaces the room segment for process-wide events
	LobbyToken = "lobby"
)

// Conn is the subset of *nats.Conn the publisher needs
type Conn interface {
	Publish(subj string, data []byte) error
}

// Config holds NATS connection settings
type Config struct {
	URL string
}

// DefaultConfig returns the default NATS configuration
func DefaultConfig() Config {
	return Config{URL: nats.DefaultURL}
}

// Publisher publishes every event as JSON on typerace.<room>.<type>
type Publisher struct {
	conn   Conn
	logger *slog.Logger
}

// Ensure Publisher implements events.Publisher
var _ events.Publisher = (*Publisher)(nil)

// Connect dials NATS and returns a Publisher along with the connection to close
func Connect(cfg Config, logger *slog.Logger) (*Publisher, *nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("typerace"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(nc, logger), nc, nil
}

// New wraps an existing connection
func New(conn Conn, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger.With(slog.String("component", "natspub")),
	}
}

// Publish mirrors the event. Failures are logged and otherwise ignored.
func (p *Publisher) Publish(_ context.Context, event model.Event) {
	data, err := json.Marshal(response.EventFromModel(event))
	if err != nil {
		p.logger.Error("failed to encode event", slog.String("type", string(event.Type)), slog.Any("error", err))
		return
	}
	subject := Subject(event.RoomID, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", slog.String("subject", subject), slog.Any("error", err))
	}
}

// Subject returns the subject an event is published on
func Subject(roomID model.RoomID, t model.EventType) string {
	room := string(roomID)
	if room == "" {
		room = LobbyToken
	}
	return SubjectPrefix + "." + room + "." + string(t)
}
