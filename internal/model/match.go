package model

import "time"

// Difficulty tags a typed word for survival bonus time
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the known difficulties in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard}

// BonusSeconds returns the survival time awarded for a correct word.
// Unknown difficulties get the smallest bonus.
func (d Difficulty) BonusSeconds() int {
	switch d {
	case DifficultyEasy:
		return 3
	case DifficultyNormal:
		return 2
	default:
		return 1
	}
}

// MatchState is a player's per-match survival state
type MatchState struct {
	TimeRemaining int
	Streak        int
	IsEliminated  bool
	LockedUntil   time.Time // zero when not input-locked
	WPM           int
	Recorded      bool // result already appended to the score log
}

// IsLocked reports whether the player's input is locked at now
func (m *MatchState) IsLocked(now time.Time) bool {
	return !m.LockedUntil.IsZero() && now.Before(m.LockedUntil)
}

// MatchResult is one player's final standing
type MatchResult struct {
	DisplayName string
	Connection  ConnectionID
	Score       int
	WPM         int
}
