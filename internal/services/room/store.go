package room

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/model"
)

const (
	// IDLength is the length of generated room codes
	IDLength = 5
	// DefaultDurationSeconds is used when a room is created without a duration
	DefaultDurationSeconds = 60
)

// RoomRefs maintains the identity -> room back-references
type RoomRefs interface {
	SetRoom(token model.Token, roomID model.RoomID)
	ClearRoom(token model.Token, roomID model.RoomID)
}

// CreateParams holds the settings a room is created with. Zero values get defaults.
type CreateParams struct {
	Name            string
	Visibility      model.Visibility
	Mode            model.GameMode
	DurationSeconds int
}

// MutateFunc changes a room in place. Returning an error discards every change.
type MutateFunc func(room *model.Room) error

// Store owns every room. All mutation goes through Update, which is atomic.
type Store struct {
	refs   RoomRefs
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu       sync.RWMutex
	rooms    map[model.RoomID]*model.Room
	onDelete []func(model.RoomID)
}

// New creates an empty Store
func New(refs RoomRefs, clock clock.Clock, random random.Random, logger *slog.Logger) *Store {
	return &Store{
		refs:   refs,
		clock:  clock,
		random: random,
		logger: logger.With(slog.String("component", "rooms")),
		rooms:  make(map[model.RoomID]*model.Room),
	}
}

// OnDelete registers a hook that runs after any room is deleted
func (s *Store) OnDelete(hook func(model.RoomID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, hook)
}

// Create makes a new room with host as its first player
func (s *Store) Create(host *model.Identity, p CreateParams) (*model.Room, error) {
	if p.Name == "" {
		p.Name = fmt.Sprintf("%s's room", host.DisplayName)
	}
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPublic
	}
	if p.Mode == "" {
		p.Mode = model.GameModeClassic
	}
	if p.DurationSeconds == 0 {
		p.DurationSeconds = DefaultDurationSeconds
	}
	settings := model.RoomSettings{
		Name:            &p.Name,
		Visibility:      &p.Visibility,
		Mode:            &p.Mode,
		DurationSeconds: &p.DurationSeconds,
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var id model.RoomID
	for {
		id = model.RoomID(s.random.String(IDLength, random.Alphanumeric))
		if _, exists := s.rooms[id]; !exists {
			break
		}
	}

	room := &model.Room{
		ID:        id,
		CreatedAt: s.clock.Now(),
		Players: []model.RoomPlayer{{
			DisplayName: host.DisplayName,
			Token:       host.Token,
			Connection:  host.Connection,
			Role:        model.RoleHost,
			IsReady:     true,
		}},
	}
	settings.Apply(room)
	s.rooms[id] = room
	snapshot := room.Clone()
	s.mu.Unlock()

	s.refs.SetRoom(host.Token, id)

	s.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host", host.DisplayName),
		slog.String("mode", string(room.Mode)),
		slog.String("visibility", string(room.Visibility)),
	)
	return snapshot, nil
}

// Get returns a snapshot of a room
func (s *Store) Get(id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// Exists reports whether a room is present
func (s *Store) Exists(id model.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok
}

// ListPublic returns snapshots of every public room, oldest first
func (s *Store) ListPublic() []*model.Room {
	s.mu.RLock()
	out := make([]*model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if room.IsPublic() {
			out = append(out, room.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *model.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// Update applies fn to a room atomically. fn works on a private copy which
// replaces the stored room only if fn succeeds. A room left without players
// is deleted in the same step; deleted reports that.
func (s *Store) Update(id model.RoomID, fn MutateFunc) (room *model.Room, deleted bool, err error) {
	s.mu.Lock()
	current, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return nil, false, model.ErrRoomNotFound
	}

	work := current.Clone()
	if err := fn(work); err != nil {
		s.mu.Unlock()
		return nil, false, err
	}

	if len(work.Players) == 0 {
		delete(s.rooms, id)
		deleted = true
	} else {
		s.rooms[id] = work
	}
	snapshot := work.Clone()
	hooks := s.onDelete
	s.mu.Unlock()

	if deleted {
		s.afterDelete(snapshot, current.Tokens(), hooks)
	}
	return snapshot, deleted, nil
}

// UpdateSettings merges the provided settings. It returns the updated room and
// the visibility the room had before, so callers can tell whether public
// listings changed.
func (s *Store) UpdateSettings(id model.RoomID, settings model.RoomSettings) (*model.Room, model.Visibility, error) {
	if err := settings.Validate(); err != nil {
		return nil, "", err
	}
	var previous model.Visibility
	room, _, err := s.Update(id, func(r *model.Room) error {
		previous = r.Visibility
		settings.Apply(r)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return room, previous, nil
}

// Delete removes a room and clears every member's back-reference
func (s *Store) Delete(id model.RoomID) error {
	s.mu.Lock()
	room, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return model.ErrRoomNotFound
	}
	delete(s.rooms, id)
	hooks := s.onDelete
	s.mu.Unlock()

	s.afterDelete(room, room.Tokens(), hooks)
	return nil
}

// Count returns the number of rooms
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Store) afterDelete(room *model.Room, tokens []model.Token, hooks []func(model.RoomID)) {
	for _, token := range tokens {
		s.refs.ClearRoom(token, room.ID)
	}
	for _, hook := range hooks {
		hook(room.ID)
	}
	s.logger.Info("room deleted", slog.String("room_id", string(room.ID)))
}
