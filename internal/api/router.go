package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/handler"
	"github.com/mcoot/typerace/internal/api/middleware"
	basemw "github.com/mcoot/typerace/internal/middleware"
	"github.com/mcoot/typerace/internal/realtime"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/match"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/presence"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/services/scores"
	"github.com/mcoot/typerace/internal/services/words"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Identities *identity.Registry
	Rooms      *room.Store
	Members    *membership.Engine
	Presence   *presence.Supervisor
	Matches    *match.Controller
	Accounts   *account.Service
	Scores     *scores.Service
	Words      *words.Service
	Gateway    *realtime.Gateway
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Rooms)
	sessionHandler := handler.NewSessionHandler(cfg.Identities, cfg.Presence, cfg.Accounts)
	accountHandler := handler.NewAccountHandler(cfg.Accounts)
	roomHandler := handler.NewRoomHandler(cfg.Rooms, cfg.Members, cfg.Matches, cfg.Scores)
	scoresHandler := handler.NewScoresHandler(cfg.Scores, cfg.Words)

	// Create middleware
	sessionMiddleware := middleware.Session(cfg.Identities)
	accountMiddleware := middleware.Account(cfg.Accounts)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// Websocket endpoint; the API recovery handler would write to a hijacked connection
	if cfg.Gateway != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(basemw.Recovery(cfg.Logger, basemw.DefaultPanicHandler))
		ws.Use(loggingMiddleware)
		ws.Handle("", cfg.Gateway).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Session routes
	api.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.Use(sessionMiddleware)
	sessions.HandleFunc("", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("", sessionHandler.Delete).Methods(http.MethodDelete)
	sessions.HandleFunc("/page", sessionHandler.SetPage).Methods(http.MethodPut)

	// Account routes
	api.HandleFunc("/accounts", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)
	me := api.PathPrefix("/accounts/me").Subrouter()
	me.Use(accountMiddleware)
	me.HandleFunc("", accountHandler.Me).Methods(http.MethodGet)
	me.HandleFunc("", accountHandler.UpdateMe).Methods(http.MethodPatch)

	// Room reads are public
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)

	// Room mutations need a session bound to a live connection
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(sessionMiddleware)
	rooms.Use(middleware.RequireConnection)
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}", roomHandler.Update).Methods(http.MethodPatch)
	rooms.HandleFunc("/{id}/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/leave", roomHandler.Leave).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/ready", roomHandler.SetReady).Methods(http.MethodPut)
	rooms.HandleFunc("/{id}/start", roomHandler.Start).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/players/{connection}", roomHandler.Kick).Methods(http.MethodDelete)
	rooms.HandleFunc("/{id}/host", roomHandler.TransferHost).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/reset-ready", roomHandler.ResetReady).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/scores", roomHandler.SubmitScore).Methods(http.MethodPost)

	// Scores and word lists
	api.HandleFunc("/scores/{name}", scoresHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/stats", scoresHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/words", scoresHandler.Words).Methods(http.MethodGet)

	return r
}
