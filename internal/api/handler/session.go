package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/middleware"
	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/presence"
)

// SessionHandler handles session identity endpoints
type SessionHandler struct {
	identities *identity.Registry
	presence   *presence.Supervisor
	accounts   *account.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(identities *identity.Registry, presence *presence.Supervisor, accounts *account.Service) *SessionHandler {
	return &SessionHandler{
		identities: identities,
		presence:   presence,
		accounts:   accounts,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	params := identity.RegisterParams{
		DisplayName: req.DisplayName,
		Token:       model.Token(req.Token),
		IsGuest:     true,
	}
	if req.AccessToken != "" {
		claims, err := h.accounts.ValidateToken(req.AccessToken)
		if err != nil {
			WriteError(w, err)
			return
		}
		params.DisplayName = claims.Username
		params.IsGuest = false
	}
	if params.DisplayName == "" && params.Token == "" {
		WriteError(w, NewInvalidRequestError("display_name is required"))
		return
	}

	ident, err := h.identities.Register(params)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.SessionResponse{
		Session:      response.SessionFromModel(ident),
		SessionToken: string(ident.Token),
	})
}

// Get handles GET /api/v1/sessions
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.SessionFromModel(ident))
}

// Delete handles DELETE /api/v1/sessions
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	if err := h.presence.Logout(r.Context(), ident.Token); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SetPage handles PUT /api/v1/sessions/page
func (h *SessionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	ident := middleware.MustGetIdentity(r.Context())

	var req request.SetPageRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	page := model.Page(req.Page)
	switch page {
	case model.PageRoomSelection, model.PageRoom, model.PageGame:
	default:
		WriteError(w, NewInvalidRequestError("unknown page"))
		return
	}

	if err := h.identities.SetPage(ident.Token, page); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
