package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/room"
)

// ProfileSource looks up the public profile of a registered player
type ProfileSource interface {
	Profile(ctx context.Context, displayName string) (model.Profile, bool, error)
}

// DefaultEnrichTimeout bounds the directory lookups behind one broadcast
const DefaultEnrichTimeout = 2 * time.Second

// Broadcaster turns game events into websocket frames
type Broadcaster struct {
	hub        *Hub
	rooms      *room.Store
	identities *identity.Registry
	profiles   ProfileSource
	timeout    time.Duration
	logger     *slog.Logger
}

// Ensure Broadcaster implements events.Publisher
var _ events.Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster. profiles may be nil, in which case
// membership broadcasts are not decorated.
func NewBroadcaster(hub *Hub, rooms *room.Store, identities *identity.Registry, profiles ProfileSource, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:        hub,
		rooms:      rooms,
		identities: identities,
		profiles:   profiles,
		timeout:    DefaultEnrichTimeout,
		logger:     logger.With(slog.String("component", "broadcaster")),
	}
}

// Publish routes an event to the connections it concerns
func (b *Broadcaster) Publish(ctx context.Context, event model.Event) {
	switch event.Type {
	case model.EventMembershipChanged:
		b.broadcastRoom(ctx, event, true)
	case model.EventRoomStateChanged:
		b.broadcastRoom(ctx, event, false)
	case model.EventPublicRoomsChanged:
		b.broadcastPublicRooms(event)
	case model.EventPlayerEliminated, model.EventMatchEnded:
		b.broadcastToRoom(event)
	case model.EventPlayerRemoved:
		b.hub.LeaveRoom(event.RoomID, event.Connection)
		b.sendDirect(event)
	case model.EventInputLocked, model.EventPowerUp:
		b.sendDirect(event)
	default:
		b.logger.Warn("unroutable event", slog.String("type", string(event.Type)))
	}
}

// broadcastRoom sends the current room snapshot to its members. Membership
// changes are decorated with directory profiles first; the snapshot is then
// fetched again so that players who left during the lookup are not sent.
func (b *Broadcaster) broadcastRoom(ctx context.Context, event model.Event, enrich bool) {
	r, err := b.rooms.Get(event.RoomID)
	if err != nil {
		b.hub.DropRoom(event.RoomID)
		return
	}

	var profiles map[string]model.Profile
	if enrich && b.profiles != nil {
		profiles = b.lookupProfiles(ctx, r)
		r, err = b.rooms.Get(event.RoomID)
		if err != nil {
			b.hub.DropRoom(event.RoomID)
			return
		}
	}

	b.syncRoom(r)
	frame := response.EventFromModel(event)
	frame.Payload = response.RoomFromModel(r, profiles)
	b.sendRoom(r.ID, frame)
}

func (b *Broadcaster) lookupProfiles(ctx context.Context, r *model.Room) map[string]model.Profile {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	profiles := make(map[string]model.Profile, len(r.Players))
	for _, p := range r.Players {
		if b.identities.IsGuest(p.DisplayName) {
			continue
		}
		profile, ok, err := b.profiles.Profile(ctx, p.DisplayName)
		if err != nil {
			b.logger.Warn("profile lookup failed",
				slog.String("display_name", p.DisplayName),
				slog.Any("error", err))
			continue
		}
		if ok {
			profiles[p.DisplayName] = profile
		}
	}
	return profiles
}

func (b *Broadcaster) broadcastPublicRooms(event model.Event) {
	frame := response.EventFromModel(event)
	frame.Payload = response.RoomSummariesFromModel(b.rooms.ListPublic())
	data, ok := b.encode(frame)
	if !ok {
		return
	}
	b.hub.BroadcastAll(data)
}

// broadcastToRoom sends an event to the room's current members
func (b *Broadcaster) broadcastToRoom(event model.Event) {
	if r, err := b.rooms.Get(event.RoomID); err == nil {
		b.syncRoom(r)
	}
	b.sendRoom(event.RoomID, response.EventFromModel(event))
}

func (b *Broadcaster) sendDirect(event model.Event) {
	if event.Connection == "" {
		return
	}
	data, ok := b.encode(response.EventFromModel(event))
	if !ok {
		return
	}
	b.hub.Send(event.Connection, data)
}

func (b *Broadcaster) sendRoom(roomID model.RoomID, frame response.Event) {
	data, ok := b.encode(frame)
	if !ok {
		return
	}
	b.hub.BroadcastRoom(roomID, data)
}

// syncRoom points the hub's room index at the snapshot's connected players
func (b *Broadcaster) syncRoom(r *model.Room) {
	conns := make([]model.ConnectionID, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connection != "" && !p.IsDisconnected {
			conns = append(conns, p.Connection)
		}
	}
	b.hub.SyncRoom(r.ID, conns)
}

func (b *Broadcaster) encode(frame response.Event) ([]byte, bool) {
	data, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error("failed to encode event", slog.String("type", frame.Type), slog.Any("error", err))
		return nil, false
	}
	return data, true
}
