package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/middleware"
	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/match"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/services/scores"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	rooms   *room.Store
	members *membership.Engine
	matches *match.Controller
	scores  *scores.Service
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Store, members *membership.Engine, matches *match.Controller, scores *scores.Service) *RoomHandler {
	return &RoomHandler{
		rooms:   rooms,
		members: members,
		matches: matches,
		scores:  scores,
	}
}

func roomID(r *http.Request) model.RoomID {
	return model.RoomID(mux.Vars(r)["id"])
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RoomSummariesFromModel(h.rooms.ListPublic()))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(roomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.CreateRoomRequest
	if err := decodeOptional(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rm, err := h.members.Create(r.Context(), ident, room.CreateParams{
		Name:            req.Name,
		Visibility:      model.Visibility(req.Visibility),
		Mode:            model.GameMode(req.Mode),
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.RoomFromModel(rm, nil))
}

// Update handles PATCH /api/v1/rooms/{id}
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.UpdateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	settings := model.RoomSettings{
		Name:            req.Name,
		DurationSeconds: req.DurationSeconds,
	}
	if req.Visibility != nil {
		v := model.Visibility(*req.Visibility)
		settings.Visibility = &v
	}
	if req.Mode != nil {
		m := model.GameMode(*req.Mode)
		settings.Mode = &m
	}

	rm, err := h.members.UpdateSettings(r.Context(), roomID(r), ident.Connection, settings)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// Join handles POST /api/v1/rooms/{id}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	rm, err := h.members.Join(r.Context(), roomID(r), membership.JoinParams{
		DisplayName: ident.DisplayName,
		Connection:  ident.Connection,
		Token:       ident.Token,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// Leave handles POST /api/v1/rooms/{id}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	if _, err := h.members.LeaveByToken(r.Context(), roomID(r), ident.Token); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SetReady handles PUT /api/v1/rooms/{id}/ready
func (h *RoomHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.SetReadyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rm, err := h.members.SetReady(r.Context(), roomID(r), ident.Connection, req.Ready)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// Start handles POST /api/v1/rooms/{id}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	rm, err := h.matches.RequestStart(r.Context(), roomID(r), ident.Connection)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// Kick handles DELETE /api/v1/rooms/{id}/players/{connection}
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())
	target := model.ConnectionID(mux.Vars(r)["connection"])

	if _, err := h.members.Kick(r.Context(), roomID(r), target, ident.Connection); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// TransferHost handles POST /api/v1/rooms/{id}/host
func (h *RoomHandler) TransferHost(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.TransferHostRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Connection == "" {
		WriteError(w, NewInvalidRequestError("connection is required"))
		return
	}

	rm, err := h.members.TransferHost(r.Context(), roomID(r), ident.Connection, model.ConnectionID(req.Connection))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// ResetReady handles POST /api/v1/rooms/{id}/reset-ready
func (h *RoomHandler) ResetReady(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	rm, err := h.members.ResetReadiness(r.Context(), roomID(r), ident.Connection)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, nil))
}

// SubmitScore handles POST /api/v1/rooms/{id}/scores
func (h *RoomHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.SubmitScoreRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.scores.Submit(r.Context(), scores.SubmitParams{
		RoomID:      roomID(r),
		DisplayName: ident.DisplayName,
		Score:       req.Score,
		WPM:         req.WPM,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	entry := response.ScoreEntriesFromModel([]*model.ScoreEntry{res.Entry})[0]
	if !res.Recorded {
		// The match already logged this player's result
		response.JSON(w, http.StatusOK, entry)
		return
	}
	response.Created(w, entry)
}
