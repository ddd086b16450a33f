package identity

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/model"
)

// TokenLength is the number of hex characters in a generated session token
const TokenLength = 32

// ErrEmptyName is returned when registering without a display name
var ErrEmptyName = errors.New("display name is required")

// RegisterParams describes a login, reconnect or re-registration
type RegisterParams struct {
	DisplayName string
	Connection  model.ConnectionID // may be empty for HTTP logins
	Token       model.Token        // empty for a fresh login
	IsGuest     bool
}

// Registry tracks live session identities by token and by connection
type Registry struct {
	random random.Random
	clock  clock.Clock
	logger *slog.Logger

	mu           sync.RWMutex
	identities   map[model.Token]*model.Identity
	byConnection map[model.ConnectionID]model.Token
}

// New creates an empty Registry
func New(random random.Random, clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		random:       random,
		clock:        clock,
		logger:       logger.With(slog.String("component", "identity")),
		identities:   make(map[model.Token]*model.Identity),
		byConnection: make(map[model.ConnectionID]model.Token),
	}
}

// Register logs a player in.
//
// A known token is a reconnect: a non-empty connection is rebound and the
// identity is otherwise returned unchanged. An unknown token (typically
// orphaned by a restart) re-creates the identity under that token if the name
// is free. Without a token a fresh one is issued. A connection that already
// belongs to a different identity is refused with ErrConnectionBound.
func (r *Registry) Register(p RegisterParams) (*model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bound, ok := r.byConnection[p.Connection]; ok && bound != p.Token {
		return nil, model.ErrConnectionBound
	}

	if p.Token != "" {
		if existing, ok := r.identities[p.Token]; ok {
			if p.Connection != "" {
				r.bindLocked(existing, p.Connection)
			}
			r.logger.Debug("identity reconnected", slog.String("display_name", existing.DisplayName))
			return clone(existing), nil
		}
	}

	if p.DisplayName == "" {
		return nil, ErrEmptyName
	}
	if r.nameTakenLocked(p.DisplayName) {
		return nil, model.ErrNameConflict
	}

	token := p.Token
	if token == "" {
		for {
			token = model.Token(r.random.String(TokenLength, random.Hex))
			if _, taken := r.identities[token]; !taken {
				break
			}
		}
	}

	ident := &model.Identity{
		Token:       token,
		DisplayName: p.DisplayName,
		Page:        model.PageRoomSelection,
		IsGuest:     p.IsGuest,
		CreatedAt:   r.clock.Now(),
	}
	r.identities[token] = ident
	r.bindLocked(ident, p.Connection)

	r.logger.Info("identity registered",
		slog.String("display_name", ident.DisplayName),
		slog.Bool("guest", ident.IsGuest),
		slog.Bool("restored", p.Token != ""),
	)
	return clone(ident), nil
}

// FindByToken returns the identity for a token
func (r *Registry) FindByToken(token model.Token) (*model.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.identities[token]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return clone(ident), nil
}

// FindByConnection returns the identity currently bound to a connection
func (r *Registry) FindByConnection(conn model.ConnectionID) (*model.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.byConnection[conn]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return clone(r.identities[token]), nil
}

// UpdateConnection rebinds an identity to a new connection
func (r *Registry) UpdateConnection(token model.Token, conn model.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[token]
	if !ok {
		return model.ErrIdentityNotFound
	}
	if bound, ok := r.byConnection[conn]; ok && bound != token {
		return model.ErrConnectionBound
	}
	r.bindLocked(ident, conn)
	return nil
}

// Remove deletes an identity. It reports whether one existed.
func (r *Registry) Remove(token model.Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[token]
	if !ok {
		return false
	}
	r.removeLocked(ident)
	return true
}

// RemoveIfConnection deletes the identity only while it is still bound to conn.
// An empty binding also matches. It reports whether the identity was removed.
func (r *Registry) RemoveIfConnection(token model.Token, conn model.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[token]
	if !ok || (ident.Connection != "" && ident.Connection != conn) {
		return false
	}
	r.removeLocked(ident)
	return true
}

// RemoveByConnection deletes the identity bound to a connection and returns it
func (r *Registry) RemoveByConnection(conn model.ConnectionID) (*model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byConnection[conn]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	ident := r.identities[token]
	r.removeLocked(ident)
	return clone(ident), nil
}

// SetRoom points the identity at a room
func (r *Registry) SetRoom(token model.Token, roomID model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.identities[token]; ok {
		ident.RoomID = roomID
	}
}

// ClearRoom drops the room reference if it still points at roomID
func (r *Registry) ClearRoom(token model.Token, roomID model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.identities[token]; ok && ident.RoomID == roomID {
		ident.RoomID = ""
	}
}

// SetPage records the UI page the client reported
func (r *Registry) SetPage(token model.Token, page model.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[token]
	if !ok {
		return model.ErrIdentityNotFound
	}
	ident.Page = page
	return nil
}

// IsGuest reports whether the named live identity is a guest.
// Unknown names are treated as guests.
func (r *Registry) IsGuest(displayName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ident := range r.identities {
		if ident.DisplayName == displayName {
			return ident.IsGuest
		}
	}
	return true
}

// Count returns the number of live identities
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

func (r *Registry) nameTakenLocked(name string) bool {
	for _, ident := range r.identities {
		if ident.DisplayName == name {
			return true
		}
	}
	return false
}

func (r *Registry) bindLocked(ident *model.Identity, conn model.ConnectionID) {
	if ident.Connection != "" {
		delete(r.byConnection, ident.Connection)
	}
	ident.Connection = conn
	if conn != "" {
		r.byConnection[conn] = ident.Token
	}
}

func (r *Registry) removeLocked(ident *model.Identity) {
	if ident.Connection != "" {
		delete(r.byConnection, ident.Connection)
	}
	delete(r.identities, ident.Token)
}

func clone(ident *model.Identity) *model.Identity {
	c := *ident
	return &c
}
