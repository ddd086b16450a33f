package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/room"
)

// ErrStillConnected is returned when removing a disconnected player who has since reconnected
var ErrStillConnected = errors.New("player is connected")

// JoinParams identifies who is joining a room
type JoinParams struct {
	DisplayName string
	Connection  model.ConnectionID
	Token       model.Token
}

// LeaveResult describes the outcome of a player leaving a room
type LeaveResult struct {
	Room    *model.Room // snapshot after removal; has no players when Deleted
	Deleted bool
	Removed model.RoomPlayer
}

// Engine adds and removes players, manages the host role and readiness
type Engine struct {
	rooms      *room.Store
	identities *identity.Registry
	publisher  events.Publisher
	clock      clock.Clock
	logger     *slog.Logger
}

// NewEngine creates a new membership Engine
func NewEngine(
	rooms *room.Store,
	identities *identity.Registry,
	publisher events.Publisher,
	clock clock.Clock,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		rooms:      rooms,
		identities: identities,
		publisher:  publisher,
		clock:      clock,
		logger:     logger.With(slog.String("component", "membership")),
	}
}

// Create makes a new room hosted by the identity. An identity already in
// another room leaves it first.
func (e *Engine) Create(ctx context.Context, host *model.Identity, params room.CreateParams) (*model.Room, error) {
	if host.InRoom() {
		e.leaveStale(ctx, host.RoomID, host.Token)
	}

	r, err := e.rooms.Create(host, params)
	if err != nil {
		return nil, err
	}
	if r.IsPublic() {
		e.publish(ctx, model.EventPublicRoomsChanged, "", "", nil)
	}
	return r, nil
}

// Join adds a player to a room. A player whose token is already in the room
// is reconnecting: their connection is rebound and the membership is otherwise
// unchanged, even mid-match. Fresh joins are rejected while a match runs.
func (e *Engine) Join(ctx context.Context, roomID model.RoomID, p JoinParams) (*model.Room, error) {
	var rejoined bool
	r, _, err := e.rooms.Update(roomID, func(r *model.Room) error {
		if i := r.IndexOfToken(p.Token); i >= 0 {
			r.Players[i].Connection = p.Connection
			r.Players[i].IsDisconnected = false
			rejoined = true
			return nil
		}
		if r.IsPlaying {
			return model.ErrMatchInProgress
		}
		r.Players = append(r.Players, model.RoomPlayer{
			DisplayName: p.DisplayName,
			Token:       p.Token,
			Connection:  p.Connection,
			Role:        model.RoleRegular,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ident, err := e.identities.FindByToken(p.Token); err == nil && ident.InRoom() && ident.RoomID != roomID {
		e.leaveStale(ctx, ident.RoomID, p.Token)
	}
	e.identities.SetRoom(p.Token, roomID)

	e.logger.Info("player joined room",
		slog.String("room_id", string(roomID)),
		slog.String("display_name", p.DisplayName),
		slog.Bool("rejoined", rejoined),
	)
	e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	if r.IsPublic() && !rejoined {
		e.publish(ctx, model.EventPublicRoomsChanged, "", "", nil)
	}
	return r, nil
}

// Leave removes the player on conn. If the room becomes empty it is deleted.
func (e *Engine) Leave(ctx context.Context, roomID model.RoomID, conn model.ConnectionID) (*LeaveResult, error) {
	return e.remove(ctx, roomID, func(r *model.Room) (int, error) {
		if i := r.IndexOfConnection(conn); i >= 0 {
			return i, nil
		}
		return -1, model.ErrPlayerNotFound
	})
}

// LeaveByToken removes the player bound to token regardless of their current connection
func (e *Engine) LeaveByToken(ctx context.Context, roomID model.RoomID, token model.Token) (*LeaveResult, error) {
	return e.remove(ctx, roomID, func(r *model.Room) (int, error) {
		if i := r.IndexOfToken(token); i >= 0 {
			return i, nil
		}
		return -1, model.ErrPlayerNotFound
	})
}

// LeaveIfDisconnected removes the token's player only if they are still
// flagged as disconnected at the moment of removal
func (e *Engine) LeaveIfDisconnected(ctx context.Context, roomID model.RoomID, token model.Token) (*LeaveResult, error) {
	return e.remove(ctx, roomID, func(r *model.Room) (int, error) {
		i := r.IndexOfToken(token)
		if i < 0 {
			return -1, model.ErrPlayerNotFound
		}
		if !r.Players[i].IsDisconnected {
			return -1, ErrStillConnected
		}
		return i, nil
	})
}

// Kick removes target from the room on the host's behalf and notifies the
// removed connection directly
func (e *Engine) Kick(ctx context.Context, roomID model.RoomID, target, requester model.ConnectionID) (*LeaveResult, error) {
	res, err := e.remove(ctx, roomID, func(r *model.Room) (int, error) {
		if err := r.Authorize(requester); err != nil {
			return -1, err
		}
		if i := r.IndexOfConnection(target); i >= 0 {
			return i, nil
		}
		return -1, model.ErrTargetNotFound
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, model.EventPlayerRemoved, roomID, target, model.PlayerRemovedPayload{Reason: model.RemovalKicked})
	return res, nil
}

func (e *Engine) remove(ctx context.Context, roomID model.RoomID, find func(r *model.Room) (int, error)) (*LeaveResult, error) {
	var removed model.RoomPlayer
	r, deleted, err := e.rooms.Update(roomID, func(r *model.Room) error {
		i, err := find(r)
		if err != nil {
			return err
		}
		removed = r.RemovePlayer(i)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.identities.ClearRoom(removed.Token, roomID)
	e.logger.Info("player left room",
		slog.String("room_id", string(roomID)),
		slog.String("display_name", removed.DisplayName),
		slog.Bool("room_deleted", deleted),
	)

	if !deleted {
		e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
		if removed.IsHost() {
			e.publish(ctx, model.EventRoomStateChanged, roomID, "", nil)
		}
	}
	if r.IsPublic() {
		e.publish(ctx, model.EventPublicRoomsChanged, "", "", nil)
	}
	return &LeaveResult{Room: r, Deleted: deleted, Removed: removed}, nil
}

// leaveStale drops a token from a room it no longer belongs in. Missing rooms
// and players are expected since the back-reference is weak.
func (e *Engine) leaveStale(ctx context.Context, roomID model.RoomID, token model.Token) {
	if _, err := e.LeaveByToken(ctx, roomID, token); err != nil {
		e.identities.ClearRoom(token, roomID)
	}
}

// SetReady sets a player's readiness. Requests for the host are ignored.
func (e *Engine) SetReady(ctx context.Context, roomID model.RoomID, conn model.ConnectionID, ready bool) (*model.Room, error) {
	var changed bool
	r, _, err := e.rooms.Update(roomID, func(r *model.Room) error {
		p := r.PlayerByConnection(conn)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		if p.IsHost() || p.IsReady == ready {
			return nil
		}
		p.IsReady = ready
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	}
	return r, nil
}

// AreAllReady reports whether every connected player in the room is ready
func (e *Engine) AreAllReady(roomID model.RoomID) (bool, error) {
	r, err := e.rooms.Get(roomID)
	if err != nil {
		return false, err
	}
	return r.AllReady(), nil
}

// TransferHost hands the host role from the current host to target
func (e *Engine) TransferHost(ctx context.Context, roomID model.RoomID, current, target model.ConnectionID) (*model.Room, error) {
	r, _, err := e.rooms.Update(roomID, func(r *model.Room) error {
		if err := r.Authorize(current); err != nil {
			return err
		}
		next := r.PlayerByConnection(target)
		if next == nil {
			return model.ErrTargetNotFound
		}
		host := r.PlayerByConnection(current)
		host.Role = model.RoleRegular
		host.IsReady = false
		next.Role = model.RoleHost
		next.IsReady = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("host transferred", slog.String("room_id", string(roomID)))
	e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	e.publish(ctx, model.EventRoomStateChanged, roomID, "", nil)
	return r, nil
}

// ResetReadiness returns the room to its lobby state between matches.
// Every non-host player becomes not ready.
func (e *Engine) ResetReadiness(ctx context.Context, roomID model.RoomID, requester model.ConnectionID) (*model.Room, error) {
	r, _, err := e.rooms.Update(roomID, func(r *model.Room) error {
		if err := r.Authorize(requester); err != nil {
			return err
		}
		r.IsPlaying = false
		r.StartedAt = nil
		r.Eliminated = nil
		for i := range r.Players {
			p := &r.Players[i]
			p.IsReady = p.IsHost()
			p.Match = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, model.EventRoomStateChanged, roomID, "", nil)
	e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	return r, nil
}

// UpdateSettings changes room settings on the host's behalf
func (e *Engine) UpdateSettings(ctx context.Context, roomID model.RoomID, requester model.ConnectionID, settings model.RoomSettings) (*model.Room, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var previous model.Visibility
	r, _, err := e.rooms.Update(roomID, func(r *model.Room) error {
		if err := r.Authorize(requester); err != nil {
			return err
		}
		if r.IsPlaying {
			return model.ErrMatchInProgress
		}
		previous = r.Visibility
		settings.Apply(r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, model.EventRoomStateChanged, roomID, "", nil)
	if r.IsPublic() || previous == model.VisibilityPublic {
		e.publish(ctx, model.EventPublicRoomsChanged, "", "", nil)
	}
	return r, nil
}

// MarkDisconnected flags the token's player as disconnected. If nobody in the
// room is left connected the room is deleted in the same update and deleted
// is true.
func (e *Engine) MarkDisconnected(ctx context.Context, roomID model.RoomID, token model.Token) (r *model.Room, deleted bool, err error) {
	r, deleted, err = e.rooms.Update(roomID, func(r *model.Room) error {
		p := r.PlayerByToken(token)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		p.IsDisconnected = true
		if r.AllDisconnected() {
			r.Players = nil
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !deleted {
		e.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	}
	return r, deleted, nil
}

// RelayPowerUp forwards a power-up from sender to every other connected player
func (e *Engine) RelayPowerUp(ctx context.Context, roomID model.RoomID, sender model.ConnectionID, powerUp string) error {
	r, err := e.rooms.Get(roomID)
	if err != nil {
		return err
	}
	from := r.PlayerByConnection(sender)
	if from == nil {
		return model.ErrPlayerNotFound
	}

	for _, p := range r.Players {
		if p.Connection == sender || p.IsDisconnected || p.Connection == "" {
			continue
		}
		e.publish(ctx, model.EventPowerUp, roomID, p.Connection, model.PowerUpPayload{Type: powerUp, From: from.DisplayName})
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, t model.EventType, roomID model.RoomID, conn model.ConnectionID, payload any) {
	e.publisher.Publish(ctx, model.Event{
		Type:       t,
		Timestamp:  e.clock.Now(),
		RoomID:     roomID,
		Connection: conn,
		Payload:    payload,
	})
}
