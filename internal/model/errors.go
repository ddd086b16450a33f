package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrNameConflict     = errors.New("display name is already in use")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrNoConnection     = errors.New("identity has no live connection")
	ErrConnectionBound  = errors.New("connection belongs to another identity")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotFound  = errors.New("player not found in room")
	ErrTargetNotFound  = errors.New("target player not found in room")
	ErrMatchInProgress = errors.New("match is in progress")
	ErrNotHost         = errors.New("player is not the host")
	ErrNotAllReady     = errors.New("not every player is ready")
	ErrInvalidSettings = errors.New("invalid room settings")

	// Match errors
	ErrNoActiveMatch = errors.New("no match in progress")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)
