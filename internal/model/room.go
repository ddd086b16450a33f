package model

import (
	"slices"
	"time"
)

// RoomID is the short code players use to join a room
type RoomID string

// Visibility controls whether a room appears in public listings
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// GameMode selects the rules a match is played with
type GameMode string

const (
	GameModeClassic     GameMode = "classic"
	GameModeSuddenDeath GameMode = "sudden-death"
)

// Valid reports whether m is a known game mode
func (m GameMode) Valid() bool {
	return m == GameModeClassic || m == GameModeSuddenDeath
}

// Role distinguishes the room host from everyone else
type Role string

const (
	RoleHost    Role = "host"
	RoleRegular Role = "regular"
)

// RoomPlayer is the room-scoped projection of an identity
type RoomPlayer struct {
	DisplayName    string
	Token          Token // back-reference to the identity, not owning
	Connection     ConnectionID
	Role           Role
	IsReady        bool
	IsDisconnected bool
	Score          int
	Match          *MatchState // nil outside a match
}

// IsHost reports whether the player holds the host role
func (p *RoomPlayer) IsHost() bool {
	return p.Role == RoleHost
}

// Room is an isolated match lobby with its own players and settings
type Room struct {
	ID              RoomID
	Name            string
	Visibility      Visibility
	Mode            GameMode
	DurationSeconds int
	Players         []RoomPlayer
	IsPlaying       bool
	StartedAt       *time.Time
	Eliminated      []string // display names, insertion ordered, no duplicates
	CreatedAt       time.Time
}

// IsPublic reports whether the room is listed publicly
func (r *Room) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}

// Host returns the host player, or nil for an empty room
func (r *Room) Host() *RoomPlayer {
	for i := range r.Players {
		if r.Players[i].IsHost() {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByToken returns the player bound to the token, or nil
func (r *Room) PlayerByToken(token Token) *RoomPlayer {
	i := r.indexOf(func(p *RoomPlayer) bool { return p.Token == token })
	if i < 0 {
		return nil
	}
	return &r.Players[i]
}

// PlayerByConnection returns the player on the connection, or nil
func (r *Room) PlayerByConnection(conn ConnectionID) *RoomPlayer {
	if conn == "" {
		return nil
	}
	i := r.indexOf(func(p *RoomPlayer) bool { return p.Connection == conn })
	if i < 0 {
		return nil
	}
	return &r.Players[i]
}

// PlayerByName returns the player with the display name, or nil
func (r *Room) PlayerByName(name string) *RoomPlayer {
	i := r.indexOf(func(p *RoomPlayer) bool { return p.DisplayName == name })
	if i < 0 {
		return nil
	}
	return &r.Players[i]
}

func (r *Room) indexOf(match func(p *RoomPlayer) bool) int {
	for i := range r.Players {
		if match(&r.Players[i]) {
			return i
		}
	}
	return -1
}

// Authorize returns ErrNotHost unless conn belongs to the room's host.
// Every privileged room operation goes through here.
func (r *Room) Authorize(conn ConnectionID) error {
	p := r.PlayerByConnection(conn)
	if p == nil || !p.IsHost() {
		return ErrNotHost
	}
	return nil
}

// RemovePlayer removes the player at index i and promotes a new host if needed.
// It returns the removed player.
func (r *Room) RemovePlayer(i int) RoomPlayer {
	removed := r.Players[i]
	r.Players = slices.Delete(r.Players, i, i+1)
	if removed.IsHost() && len(r.Players) > 0 {
		r.Players[0].Role = RoleHost
		r.Players[0].IsReady = true
	}
	return removed
}

// IndexOfConnection returns the index of the player on conn, or -1
func (r *Room) IndexOfConnection(conn ConnectionID) int {
	if conn == "" {
		return -1
	}
	return r.indexOf(func(p *RoomPlayer) bool { return p.Connection == conn })
}

// IndexOfToken returns the index of the player bound to token, or -1
func (r *Room) IndexOfToken(token Token) int {
	return r.indexOf(func(p *RoomPlayer) bool { return p.Token == token })
}

// AllReady reports whether every connected player is ready. The host always counts as ready.
func (r *Room) AllReady() bool {
	for _, p := range r.Players {
		if p.IsDisconnected {
			continue
		}
		if !p.IsHost() && !p.IsReady {
			return false
		}
	}
	return true
}

// AllDisconnected reports whether a non-empty room has no connected players
func (r *Room) AllDisconnected() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.IsDisconnected {
			return false
		}
	}
	return true
}

// MarkEliminated records name in the eliminated set
func (r *Room) MarkEliminated(name string) {
	if !slices.Contains(r.Eliminated, name) {
		r.Eliminated = append(r.Eliminated, name)
	}
}

// Tokens returns the tokens of every player in the room
func (r *Room) Tokens() []Token {
	tokens := make([]Token, len(r.Players))
	for i, p := range r.Players {
		tokens[i] = p.Token
	}
	return tokens
}

// Clone returns a deep copy safe to hand outside the store
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]RoomPlayer, len(r.Players))
	for i, p := range r.Players {
		if p.Match != nil {
			m := *p.Match
			p.Match = &m
		}
		c.Players[i] = p
	}
	c.Eliminated = slices.Clone(r.Eliminated)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// RoomSettings is a partial update of a room's settings. Nil fields are left unchanged.
type RoomSettings struct {
	Name            *string
	Visibility      *Visibility
	Mode            *GameMode
	DurationSeconds *int
}

// Validate checks the provided fields
func (s RoomSettings) Validate() error {
	if s.Name != nil && *s.Name == "" {
		return ErrInvalidSettings
	}
	if s.Visibility != nil && !s.Visibility.Valid() {
		return ErrInvalidSettings
	}
	if s.Mode != nil && !s.Mode.Valid() {
		return ErrInvalidSettings
	}
	if s.DurationSeconds != nil && *s.DurationSeconds <= 0 {
		return ErrInvalidSettings
	}
	return nil
}

// Apply merges the provided fields into the room
func (s RoomSettings) Apply(r *Room) {
	if s.Name != nil {
		r.Name = *s.Name
	}
	if s.Visibility != nil {
		r.Visibility = *s.Visibility
	}
	if s.Mode != nil {
		r.Mode = *s.Mode
	}
	if s.DurationSeconds != nil {
		r.DurationSeconds = *s.DurationSeconds
	}
}
