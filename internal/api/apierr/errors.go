package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/scores"
	"github.com/mcoot/typerace/internal/services/words"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeNameConflict       = "NAME_CONFLICT"
	CodeNoConnection       = "NO_CONNECTION"
	CodeAlreadyIdentified  = "ALREADY_IDENTIFIED"
	CodeNotHost            = "NOT_HOST"
	CodeNotAllReady        = "NOT_ALL_READY"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeTargetNotFound     = "TARGET_NOT_FOUND"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeMatchInProgress    = "MATCH_IN_PROGRESS"
	CodeNoActiveMatch      = "NO_ACTIVE_MATCH"
	CodeInvalidSettings    = "INVALID_SETTINGS"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnknownDifficulty  = "UNKNOWN_DIFFICULTY"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Describe returns the status and API error an error maps to
func Describe(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Identity errors
	case errors.Is(err, model.ErrNameConflict):
		return &httpError{http.StatusConflict, APIError{CodeNameConflict, "Display name is already in use"}}
	case errors.Is(err, model.ErrIdentityNotFound):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, model.ErrNoConnection):
		return &httpError{http.StatusConflict, APIError{CodeNoConnection, "Open a realtime connection first"}}
	case errors.Is(err, model.ErrConnectionBound):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyIdentified, "Connection is already identified"}}
	case errors.Is(err, identity.ErrEmptyName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Display name is required"}}

	// Room errors
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found in room"}}
	case errors.Is(err, model.ErrTargetNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTargetNotFound, "Target player not found in room"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotAllReady):
		return &httpError{http.StatusConflict, APIError{CodeNotAllReady, "Not every player is ready"}}
	case errors.Is(err, model.ErrMatchInProgress):
		return &httpError{http.StatusConflict, APIError{CodeMatchInProgress, "Match is in progress"}}
	case errors.Is(err, model.ErrNoActiveMatch):
		return &httpError{http.StatusConflict, APIError{CodeNoActiveMatch, "No match in progress"}}
	case errors.Is(err, model.ErrInvalidSettings):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSettings, "Invalid room settings"}}

	// Account errors
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAccountNotFound, "Account not found"}}
	case errors.Is(err, model.ErrAccountExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, account.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, account.ErrExpiredToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeTokenExpired, "Access token has expired"}}
	case errors.Is(err, account.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid access token"}}
	case errors.Is(err, account.ErrMissingFields):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Username and password are required"}}

	// Score and word errors
	case errors.Is(err, scores.ErrInvalidScore):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Score and wpm must not be negative"}}
	case errors.Is(err, words.ErrUnknownDifficulty):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownDifficulty, "Unknown difficulty"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
