package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/middleware"
	"github.com/mcoot/typerace/internal/api/request"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/account"
)

// AccountHandler handles registered account endpoints
type AccountHandler struct {
	accounts *account.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
	}
}

// Register handles POST /api/v1/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	acct, err := h.accounts.Register(r.Context(), account.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
		Color:    req.Color,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.AccountFromModel(acct))
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	token, acct, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{
		Account:     response.AccountFromModel(acct),
		AccessToken: token,
		TokenType:   "Bearer",
	})
}

// Me handles GET /api/v1/accounts/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.MustGetClaims(r.Context())

	acct, err := h.accounts.Me(r.Context(), claims)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromModel(acct))
}

// UpdateMe handles PATCH /api/v1/accounts/me
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.MustGetClaims(r.Context())

	var req request.UpdateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	acct, err := h.accounts.UpdateProfile(r.Context(), claims.AccountID, model.ProfileUpdate{
		Avatar: req.Avatar,
		Color:  req.Color,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromModel(acct))
}
