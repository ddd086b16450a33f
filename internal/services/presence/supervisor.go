package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/room"
)

// Config holds presence settings
type Config struct {
	// GracePeriod is how long a disconnected player keeps their seat
	GracePeriod time.Duration
}

// DefaultConfig returns the default presence configuration
func DefaultConfig() Config {
	return Config{
		GracePeriod: 30 * time.Second,
	}
}

// grace is a pending expiry for one disconnected identity
type grace struct {
	timer  clock.Timer
	gen    uint64
	roomID model.RoomID
	conn   model.ConnectionID // the connection that dropped
}

// Supervisor turns connection loss into grace periods and permanent removal
type Supervisor struct {
	cfg        Config
	identities *identity.Registry
	members    *membership.Engine
	publisher  events.Publisher
	clock      clock.Clock
	logger     *slog.Logger

	mu     sync.Mutex
	timers map[model.Token]*grace
	gen    uint64
}

// NewSupervisor creates a Supervisor and hooks it into room deletion
func NewSupervisor(
	cfg Config,
	identities *identity.Registry,
	rooms *room.Store,
	members *membership.Engine,
	publisher events.Publisher,
	clock clock.Clock,
	logger *slog.Logger,
) *Supervisor {
	s := &Supervisor{
		cfg:        cfg,
		identities: identities,
		members:    members,
		publisher:  publisher,
		clock:      clock,
		logger:     logger.With(slog.String("component", "presence")),
		timers:     make(map[model.Token]*grace),
	}
	rooms.OnDelete(s.roomDeleted)
	return s
}

// Disconnect handles the loss of a live connection.
//
// An identity outside any room is removed at once. Inside a room the player
// is flagged as disconnected and keeps their seat for the grace period. If
// that leaves nobody connected the room is deleted immediately.
func (s *Supervisor) Disconnect(ctx context.Context, conn model.ConnectionID) error {
	ident, err := s.identities.FindByConnection(conn)
	if err != nil {
		return err
	}

	if !ident.InRoom() {
		s.identities.Remove(ident.Token)
		s.logger.Debug("identity removed on disconnect", slog.String("display_name", ident.DisplayName))
		return nil
	}

	r, deleted, err := s.members.MarkDisconnected(ctx, ident.RoomID, ident.Token)
	if errors.Is(err, model.ErrRoomNotFound) || errors.Is(err, model.ErrPlayerNotFound) {
		// Stale back-reference
		s.identities.Remove(ident.Token)
		return nil
	}
	if err != nil {
		return err
	}

	if deleted {
		s.identities.Remove(ident.Token)
		s.logger.Info("room abandoned", slog.String("room_id", string(r.ID)))
		s.publisher.Publish(ctx, model.Event{
			Type:      model.EventPublicRoomsChanged,
			Timestamp: s.clock.Now(),
		})
		return nil
	}

	s.startGrace(ident.Token, r.ID, conn)
	s.logger.Info("player disconnected",
		slog.String("room_id", string(r.ID)),
		slog.String("display_name", ident.DisplayName),
		slog.Duration("grace", s.cfg.GracePeriod),
	)
	return nil
}

// Reconnect cancels any pending expiry for the token. It reports whether one was pending.
func (s *Supervisor) Reconnect(token model.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.timers[token]
	if !ok {
		return false
	}
	g.timer.Stop()
	delete(s.timers, token)
	return true
}

// Logout removes an identity and its room membership immediately
func (s *Supervisor) Logout(ctx context.Context, token model.Token) error {
	s.Reconnect(token)

	ident, err := s.identities.FindByToken(token)
	if err != nil {
		return err
	}
	if ident.InRoom() {
		if _, err := s.members.LeaveByToken(ctx, ident.RoomID, token); err != nil &&
			!errors.Is(err, model.ErrRoomNotFound) && !errors.Is(err, model.ErrPlayerNotFound) {
			return err
		}
	}
	s.identities.Remove(token)
	s.logger.Info("identity logged out", slog.String("display_name", ident.DisplayName))
	return nil
}

// Pending returns the number of running grace timers
func (s *Supervisor) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Supervisor) startGrace(token model.Token, roomID model.RoomID, conn model.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer disconnect supersedes an older timer
	if prev, ok := s.timers[token]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timers[token] = &grace{
		gen:    gen,
		roomID: roomID,
		conn:   conn,
		timer:  s.clock.AfterFunc(s.cfg.GracePeriod, func() { s.expire(token, gen) }),
	}
}

// expire runs when a grace period ends. Everything is re-checked against
// current state; a reconnected or already removed player is left alone.
func (s *Supervisor) expire(token model.Token, gen uint64) {
	s.mu.Lock()
	g, ok := s.timers[token]
	if !ok || g.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, token)
	s.mu.Unlock()

	ctx := context.Background()
	res, err := s.members.LeaveIfDisconnected(ctx, g.roomID, token)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			s.identities.RemoveIfConnection(token, g.conn)
		}
		return
	}

	s.identities.RemoveIfConnection(token, g.conn)
	s.publisher.Publish(ctx, model.Event{
		Type:       model.EventPlayerRemoved,
		Timestamp:  s.clock.Now(),
		RoomID:     g.roomID,
		Connection: g.conn,
		Payload:    model.PlayerRemovedPayload{Reason: model.RemovalExpired},
	})
	s.logger.Info("grace period expired",
		slog.String("room_id", string(g.roomID)),
		slog.String("display_name", res.Removed.DisplayName),
		slog.Bool("room_deleted", res.Deleted),
	)
}

// roomDeleted drops the grace timers of a deleted room. Their identities
// have no seat to come back to, so they are removed as well.
func (s *Supervisor) roomDeleted(roomID model.RoomID) {
	s.mu.Lock()
	var orphaned []*grace
	var tokens []model.Token
	for token, g := range s.timers {
		if g.roomID == roomID {
			g.timer.Stop()
			delete(s.timers, token)
			orphaned = append(orphaned, g)
			tokens = append(tokens, token)
		}
	}
	s.mu.Unlock()

	for i, token := range tokens {
		s.identities.RemoveIfConnection(token, orphaned[i].conn)
	}
}
