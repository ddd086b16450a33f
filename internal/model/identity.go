package model

import "time"

// Token is the opaque secret that identifies a session across reconnects
type Token string

// ConnectionID identifies one live realtime connection
type ConnectionID string

// Page is the UI location a client last reported
type Page string

const (
	PageRoomSelection Page = "room-selection"
	PageRoom          Page = "room"
	PageGame          Page = "game"
)

// Identity is a token-bound record of a connecting player, independent of rooms
type Identity struct {
	Token       Token
	DisplayName string
	Connection  ConnectionID // empty when no live connection is bound
	RoomID      RoomID       // weak reference, validate against the room store before use
	Page        Page
	IsGuest     bool
	CreatedAt   time.Time
}

// InRoom reports whether the identity points at a room
func (i *Identity) InRoom() bool {
	return i.RoomID != ""
}
