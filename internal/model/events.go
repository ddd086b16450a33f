package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventMembershipChanged  EventType = "membership-changed"
	EventRoomStateChanged   EventType = "room-state-changed"
	EventPublicRoomsChanged EventType = "public-room-list-changed"
	EventPlayerRemoved      EventType = "player-removed"
	EventPowerUp            EventType = "power-up"

	// Match events
	EventPlayerEliminated EventType = "player-eliminated"
	EventMatchEnded       EventType = "match-ended"
	EventInputLocked      EventType = "input-locked"
)

// Event is the base structure for all events.
// Events never carry session tokens; players are identified by connection handle and name.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	RoomID     RoomID       // empty for process-wide events
	Connection ConnectionID // the connection the event is about or addressed to
	Payload    any          // type-specific data
}

// RemovalReason explains why a player left a room
type RemovalReason string

const (
	RemovalKicked  RemovalReason = "kicked"
	RemovalExpired RemovalReason = "expired"
)

// PlayerRemovedPayload is sent directly to a removed connection
type PlayerRemovedPayload struct {
	Reason RemovalReason
}

// PlayerEliminatedPayload identifies an eliminated player
type PlayerEliminatedPayload struct {
	DisplayName string
}

// MatchEndedPayload carries the final standings
type MatchEndedPayload struct {
	Results []MatchResult
}

// InputLockedPayload lists the connections whose input is locked
type InputLockedPayload struct {
	Source   ConnectionID
	Targets  []ConnectionID
	Duration time.Duration
}

// PowerUpPayload relays a power-up to everyone in the room except the sender
type PowerUpPayload struct {
	Type string
	From string // sender display name
}
