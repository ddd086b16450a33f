package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/services/room"
)

// HealthHandler reports liveness
type HealthHandler struct {
	rooms *room.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(rooms *room.Store) *HealthHandler {
	return &HealthHandler{rooms: rooms}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Rooms: h.rooms.Count()})
}
