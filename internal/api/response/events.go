package response

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// Event is the frame pushed to realtime clients and mirrored to the bus
type Event struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// PlayerRemoved tells a connection it is no longer in a room
type PlayerRemoved struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason"`
}

// PlayerEliminated identifies a player knocked out of a survival match
type PlayerEliminated struct {
	DisplayName string `json:"display_name"`
	Connection  string `json:"connection"`
}

// MatchEnded carries the final standings
type MatchEnded struct {
	Results []MatchResult `json:"results"`
}

// InputLocked tells a player their input is locked
type InputLocked struct {
	Source     string   `json:"source"`
	Targets    []string `json:"targets"`
	DurationMS int64    `json:"duration_ms"`
}

// PowerUp is a power-up relayed from another player
type PowerUp struct {
	Type string `json:"type"`
	From string `json:"from"`
}

// EventFromModel converts an event and its typed payload. Payloads the
// caller has already converted pass through unchanged.
func EventFromModel(e model.Event) Event {
	return Event{
		Type:      string(e.Type),
		RoomID:    string(e.RoomID),
		Timestamp: e.Timestamp,
		Payload:   eventPayload(e),
	}
}

func eventPayload(e model.Event) any {
	switch p := e.Payload.(type) {
	case model.PlayerRemovedPayload:
		return PlayerRemoved{RoomID: string(e.RoomID), Reason: string(p.Reason)}
	case model.PlayerEliminatedPayload:
		return PlayerEliminated{DisplayName: p.DisplayName, Connection: string(e.Connection)}
	case model.MatchEndedPayload:
		results := make([]MatchResult, len(p.Results))
		for i, r := range p.Results {
			results[i] = MatchResult{DisplayName: r.DisplayName, Connection: string(r.Connection), Score: r.Score}
		}
		return MatchEnded{Results: results}
	case model.InputLockedPayload:
		targets := make([]string, len(p.Targets))
		for i, t := range p.Targets {
			targets[i] = string(t)
		}
		return InputLocked{Source: string(p.Source), Targets: targets, DurationMS: p.Duration.Milliseconds()}
	case model.PowerUpPayload:
		return PowerUp{Type: p.Type, From: p.From}
	default:
		return e.Payload
	}
}
