package model

import "time"

// AccountID uniquely identifies a registered account
type AccountID string

// Account is a persisted user in the account directory
type Account struct {
	ID           AccountID
	Username     string
	Email        string
	PasswordHash string // bcrypt hash
	Avatar       string
	Color        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public subset of an account used to decorate broadcasts
type Profile struct {
	Avatar string
	Color  string
}

// GuestAvatar is shown for players without an account
const GuestAvatar = "noImage"

// ProfileUpdate is a partial update of an account profile
type ProfileUpdate struct {
	Avatar *string
	Color  *string
}
