package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/scores"
	"github.com/mcoot/typerace/internal/services/words"
)

// ScoresHandler handles score history, leaderboard and word list endpoints
type ScoresHandler struct {
	scores *scores.Service
	words  *words.Service
}

// NewScoresHandler creates a new scores handler
func NewScoresHandler(scores *scores.Service, words *words.Service) *ScoresHandler {
	return &ScoresHandler{
		scores: scores,
		words:  words,
	}
}

// History handles GET /api/v1/scores/{name}
func (h *ScoresHandler) History(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.scores.History(r.Context(), name, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoreEntriesFromModel(entries))
}

// Stats handles GET /api/v1/stats
func (h *ScoresHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scores.Leaderboard(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatsFromModel(stats))
}

// Words handles GET /api/v1/words. With difficulty and count query
// parameters it returns a random pick instead of every list.
func (h *ScoresHandler) Words(w http.ResponseWriter, r *http.Request) {
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		response.JSON(w, http.StatusOK, response.WordsFromModel(h.words.All()))
		return
	}

	count := 10
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, NewInvalidRequestError("count must be a positive integer"))
			return
		}
		count = n
	}

	picked, err := h.words.Pick(model.Difficulty(difficulty), count)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Words{difficulty: picked})
}
