package model

import "time"

// ScoreEntry is one appended record in the score log
type ScoreEntry struct {
	ID         string
	PlayerName string
	RoomID     RoomID
	Score      int
	WPM        int
	Date       time.Time
}

// PlayerStats aggregates every score logged for one player
type PlayerStats struct {
	PlayerName string
	TotalGames int
	AvgScore   float64
	MaxScore   int
	AvgWPM     float64
	MaxWPM     int
}
