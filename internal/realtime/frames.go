package realtime

import "encoding/json"

// Inbound frame types
const (
	FrameIdentify         = "identify"
	FrameJoinRoom         = "join-room"
	FrameLeaveRoom        = "leave-room"
	FrameSetReady         = "set-ready"
	FrameWordCompleted    = "word-completed"
	FrameScoreUpdate      = "score-update"
	FramePlayerEliminated = "player-eliminated"
	FramePowerUp          = "power-up"
	FrameLogout           = "logout"
)

// Outbound frame types that are replies rather than events
const (
	FrameIdentified = "identified"
	FrameJoined     = "joined"
	FrameError      = "error"
)

// Inbound is a client frame
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IdentifyPayload logs the connection in, or reclaims a session by token
type IdentifyPayload struct {
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
	IsGuest     bool   `json:"is_guest"`
}

// JoinRoomPayload names the room to join
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// SetReadyPayload toggles readiness
type SetReadyPayload struct {
	Ready bool `json:"ready"`
}

// WordCompletedPayload reports a correctly typed word
type WordCompletedPayload struct {
	Difficulty string `json:"difficulty"`
}

// ScoreUpdatePayload reports a live score
type ScoreUpdatePayload struct {
	Score int `json:"score"`
}

// PowerUpPayload names the power-up to relay
type PowerUpPayload struct {
	Type string `json:"type"`
}

// Reply is sent only to the connection that sent the frame
type Reply struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
