package response

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// Session represents a live identity in API responses. The token is only
// ever returned to its owner, in SessionResponse.
type Session struct {
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	Page        string `json:"page"`
	RoomID      string `json:"room_id,omitempty"`
	Connected   bool   `json:"connected"`
}

// SessionFromModel converts a model.Identity
func SessionFromModel(i *model.Identity) Session {
	return Session{
		DisplayName: i.DisplayName,
		IsGuest:     i.IsGuest,
		Page:        string(i.Page),
		RoomID:      string(i.RoomID),
		Connected:   i.Connection != "",
	}
}

// SessionResponse is the response for session registration
type SessionResponse struct {
	Session      Session `json:"session"`
	SessionToken string  `json:"session_token"`
}

// Account represents a registered account
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts a model.Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		ID:        string(a.ID),
		Username:  a.Username,
		Email:     a.Email,
		Avatar:    a.Avatar,
		Color:     a.Color,
		CreatedAt: a.CreatedAt,
	}
}

// LoginResponse is the response for account login
type LoginResponse struct {
	Account     Account `json:"account"`
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
}

// MatchState represents a player's survival state
type MatchState struct {
	TimeRemaining int        `json:"time_remaining"`
	Streak        int        `json:"streak"`
	IsEliminated  bool       `json:"is_eliminated"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
}

// MatchStateFromModel converts a model.MatchState
func MatchStateFromModel(m *model.MatchState) *MatchState {
	if m == nil {
		return nil
	}
	var locked *time.Time
	if !m.LockedUntil.IsZero() {
		t := m.LockedUntil
		locked = &t
	}
	return &MatchState{
		TimeRemaining: m.TimeRemaining,
		Streak:        m.Streak,
		IsEliminated:  m.IsEliminated,
		LockedUntil:   locked,
	}
}

// RoomPlayer represents a member of a room
type RoomPlayer struct {
	DisplayName    string      `json:"display_name"`
	Connection     string      `json:"connection,omitempty"`
	Role           string      `json:"role"`
	IsHost         bool        `json:"is_host"`
	IsReady        bool        `json:"is_ready"`
	IsDisconnected bool        `json:"is_disconnected"`
	Score          int         `json:"score"`
	Avatar         string      `json:"avatar,omitempty"`
	Color          string      `json:"color,omitempty"`
	Match          *MatchState `json:"match,omitempty"`
}

// RoomPlayerFromModel converts a model.RoomPlayer
func RoomPlayerFromModel(p model.RoomPlayer) RoomPlayer {
	return RoomPlayer{
		DisplayName:    p.DisplayName,
		Connection:     string(p.Connection),
		Role:           string(p.Role),
		IsHost:         p.IsHost(),
		IsReady:        p.IsReady,
		IsDisconnected: p.IsDisconnected,
		Score:          p.Score,
		Match:          MatchStateFromModel(p.Match),
	}
}

// Room represents a room in API responses
type Room struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Visibility      string       `json:"visibility"`
	Mode            string       `json:"mode"`
	DurationSeconds int          `json:"duration_seconds"`
	Players         []RoomPlayer `json:"players"`
	IsPlaying       bool         `json:"is_playing"`
	StartedAt       *time.Time   `json:"started_at"`
	Eliminated      []string     `json:"eliminated"`
	CreatedAt       time.Time    `json:"created_at"`
}

// RoomFromModel converts a model.Room. When profiles is non-nil every player
// is decorated from it; players without a profile get the guest avatar.
func RoomFromModel(r *model.Room, profiles map[string]model.Profile) Room {
	players := make([]RoomPlayer, len(r.Players))
	for i, p := range r.Players {
		players[i] = RoomPlayerFromModel(p)
		if profiles == nil {
			continue
		}
		if profile, ok := profiles[p.DisplayName]; ok {
			players[i].Avatar = profile.Avatar
			players[i].Color = profile.Color
		} else {
			players[i].Avatar = model.GuestAvatar
		}
	}

	eliminated := r.Eliminated
	if eliminated == nil {
		eliminated = []string{}
	}

	return Room{
		ID:              string(r.ID),
		Name:            r.Name,
		Visibility:      string(r.Visibility),
		Mode:            string(r.Mode),
		DurationSeconds: r.DurationSeconds,
		Players:         players,
		IsPlaying:       r.IsPlaying,
		StartedAt:       r.StartedAt,
		Eliminated:      eliminated,
		CreatedAt:       r.CreatedAt,
	}
}

// RoomSummary is a row of the public room list
type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	PlayerCount int    `json:"player_count"`
	IsPlaying   bool   `json:"is_playing"`
}

// RoomSummariesFromModel converts a list of rooms
func RoomSummariesFromModel(rooms []*model.Room) []RoomSummary {
	out := make([]RoomSummary, len(rooms))
	for i, r := range rooms {
		out[i] = RoomSummary{
			ID:          string(r.ID),
			Name:        r.Name,
			Mode:        string(r.Mode),
			PlayerCount: len(r.Players),
			IsPlaying:   r.IsPlaying,
		}
	}
	return out
}

// MatchResult is one player's final standing
type MatchResult struct {
	DisplayName string `json:"display_name"`
	Connection  string `json:"connection,omitempty"`
	Score       int    `json:"score"`
}

// ScoreEntry is one logged score
type ScoreEntry struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	RoomID     string    `json:"room_id,omitempty"`
	Score      int       `json:"score"`
	WPM        int       `json:"wpm"`
	Date       time.Time `json:"date"`
}

// ScoreEntriesFromModel converts logged scores
func ScoreEntriesFromModel(entries []*model.ScoreEntry) []ScoreEntry {
	out := make([]ScoreEntry, len(entries))
	for i, e := range entries {
		out[i] = ScoreEntry{
			ID:         e.ID,
			PlayerName: e.PlayerName,
			RoomID:     string(e.RoomID),
			Score:      e.Score,
			WPM:        e.WPM,
			Date:       e.Date,
		}
	}
	return out
}

// PlayerStats is one row of the leaderboard
type PlayerStats struct {
	PlayerName string  `json:"player_name"`
	TotalGames int     `json:"total_games"`
	AvgScore   float64 `json:"avg_score"`
	MaxScore   int     `json:"max_score"`
	AvgWPM     float64 `json:"avg_wpm"`
	MaxWPM     int     `json:"max_wpm"`
}

// PlayerStatsFromModel converts leaderboard rows
func PlayerStatsFromModel(stats []*model.PlayerStats) []PlayerStats {
	out := make([]PlayerStats, len(stats))
	for i, s := range stats {
		out[i] = PlayerStats{
			PlayerName: s.PlayerName,
			TotalGames: s.TotalGames,
			AvgScore:   s.AvgScore,
			MaxScore:   s.MaxScore,
			AvgWPM:     s.AvgWPM,
			MaxWPM:     s.MaxWPM,
		}
	}
	return out
}

// Words maps each difficulty to its word list
type Words map[string][]string

// WordsFromModel converts word lists
func WordsFromModel(words map[model.Difficulty][]string) Words {
	out := make(Words, len(words))
	for d, list := range words {
		out[string(d)] = list
	}
	return out
}

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}
