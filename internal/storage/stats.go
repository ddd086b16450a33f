package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/typerace/internal/model"
)

// AggregateStats folds score entries into per-player stats ordered by
// average score, highest first. Ties are broken by name.
func AggregateStats(entries []*model.ScoreEntry) []*model.PlayerStats {
	byPlayer := make(map[string]*model.PlayerStats)
	totals := make(map[string][2]int) // score sum, wpm sum

	for _, e := range entries {
		st, ok := byPlayer[e.PlayerName]
		if !ok {
			st = &model.PlayerStats{PlayerName: e.PlayerName, MaxScore: e.Score, MaxWPM: e.WPM}
			byPlayer[e.PlayerName] = st
		}
		st.TotalGames++
		st.MaxScore = max(st.MaxScore, e.Score)
		st.MaxWPM = max(st.MaxWPM, e.WPM)
		t := totals[e.PlayerName]
		totals[e.PlayerName] = [2]int{t[0] + e.Score, t[1] + e.WPM}
	}

	out := make([]*model.PlayerStats, 0, len(byPlayer))
	for name, st := range byPlayer {
		t := totals[name]
		st.AvgScore = float64(t[0]) / float64(st.TotalGames)
		st.AvgWPM = float64(t[1]) / float64(st.TotalGames)
		out = append(out, st)
	}
	SortStats(out)
	return out
}

// SortStats orders stats by average score descending, then by name
func SortStats(stats []*model.PlayerStats) {
	slices.SortFunc(stats, func(a, b *model.PlayerStats) int {
		if c := cmp.Compare(b.AvgScore, a.AvgScore); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerName, b.PlayerName)
	})
}

// SortRecentFirst orders entries by date, newest first
func SortRecentFirst(entries []*model.ScoreEntry) {
	slices.SortStableFunc(entries, func(a, b *model.ScoreEntry) int {
		return b.Date.Compare(a.Date)
	})
}
