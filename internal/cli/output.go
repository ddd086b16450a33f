package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mcoot/typerace/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Session:
		o.printSession(v)
	case response.SessionResponse:
		o.printSession(v.Session)
		fmt.Printf("Token: %s\n", v.SessionToken)
	case response.Account:
		o.printAccount(v)
	case response.LoginResponse:
		o.printAccount(v.Account)
		fmt.Println("Access token saved")
	case response.Room:
		o.printRoom(v)
	case []response.RoomSummary:
		o.printRoomSummaries(v)
	case response.ScoreEntry:
		fmt.Printf("Score %d (%d wpm) recorded\n", v.Score, v.WPM)
	case []response.ScoreEntry:
		o.printScores(v)
	case []response.PlayerStats:
		o.printStats(v)
	case response.Words:
		o.printWords(v)
	case response.Health:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Rooms: %d\n", v.Rooms)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (o *Output) printSession(s response.Session) {
	fmt.Printf("Session: %s\n", s.DisplayName)
	fmt.Printf("Guest: %s\n", yesNo(s.IsGuest))
	fmt.Printf("Connected: %s\n", yesNo(s.Connected))
	fmt.Printf("Page: %s\n", s.Page)
	if s.RoomID != "" {
		fmt.Printf("Room: %s\n", s.RoomID)
	}
}

func (o *Output) printAccount(a response.Account) {
	fmt.Printf("Account: %s (%s)\n", a.Username, a.ID)
	if a.Email != "" {
		fmt.Printf("Email: %s\n", a.Email)
	}
	fmt.Printf("Avatar: %s\n", a.Avatar)
	if a.Color != "" {
		fmt.Printf("Color: %s\n", a.Color)
	}
}

func (o *Output) printRoom(r response.Room) {
	fmt.Printf("Room: %s (%s)\n", r.Name, r.ID)
	fmt.Printf("Visibility: %s\n", r.Visibility)
	fmt.Printf("Mode: %s\n", r.Mode)
	fmt.Printf("Duration: %ds\n", r.DurationSeconds)
	fmt.Printf("Playing: %s\n", yesNo(r.IsPlaying))
	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		var flags []string
		if p.IsHost {
			flags = append(flags, "host")
		}
		if p.IsReady {
			flags = append(flags, "ready")
		}
		if p.IsDisconnected {
			flags = append(flags, "disconnected")
		}
		if p.Match != nil {
			if p.Match.IsEliminated {
				flags = append(flags, "eliminated")
			} else {
				flags = append(flags, fmt.Sprintf("%ds left", p.Match.TimeRemaining))
			}
		}
		flagStr := ""
		if len(flags) > 0 {
			flagStr = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s) score %d%s\n", p.DisplayName, p.Connection, p.Score, flagStr)
	}
	if len(r.Eliminated) > 0 {
		fmt.Printf("Eliminated: %s\n", strings.Join(r.Eliminated, ", "))
	}
}

func (o *Output) printRoomSummaries(rooms []response.RoomSummary) {
	if len(rooms) == 0 {
		fmt.Println("No public rooms")
		return
	}
	for _, r := range rooms {
		state := "waiting"
		if r.IsPlaying {
			state = "playing"
		}
		fmt.Printf("%s  %-24s %-12s %d players, %s\n", r.ID, r.Name, r.Mode, r.PlayerCount, state)
	}
}

func (o *Output) printScores(entries []response.ScoreEntry) {
	if len(entries) == 0 {
		fmt.Println("No scores")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-6s score %4d  %3d wpm\n", e.Date.Format("2006-01-02 15:04"), e.RoomID, e.Score, e.WPM)
	}
}

func (o *Output) printStats(stats []response.PlayerStats) {
	if len(stats) == 0 {
		fmt.Println("No scores yet")
		return
	}
	for i, s := range stats {
		fmt.Printf("%2d. %-20s games %3d  avg %6.1f  best %4d  avg wpm %5.1f\n",
			i+1, s.PlayerName, s.TotalGames, s.AvgScore, s.MaxScore, s.AvgWPM)
	}
}

func (o *Output) printWords(w response.Words) {
	difficulties := make([]string, 0, len(w))
	for d := range w {
		difficulties = append(difficulties, d)
	}
	sort.Strings(difficulties)
	for _, d := range difficulties {
		fmt.Printf("%s: %s\n", d, strings.Join(w[d], ", "))
	}
}
