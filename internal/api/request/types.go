package request

// CreateSessionRequest is the request body for registering or reclaiming a session
type CreateSessionRequest struct {
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
	// AccessToken, when valid, logs the session in as the account's username
	AccessToken string `json:"access_token,omitempty"`
}

// SetPageRequest is the request body for reporting the client's page
type SetPageRequest struct {
	Page string `json:"page"`
}

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Color    string `json:"color"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for changing a profile
type UpdateProfileRequest struct {
	Avatar *string `json:"avatar,omitempty"`
	Color  *string `json:"color,omitempty"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name            string `json:"name,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	Mode            string `json:"mode,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// UpdateRoomRequest is the request body for changing room settings
type UpdateRoomRequest struct {
	Name            *string `json:"name,omitempty"`
	Visibility      *string `json:"visibility,omitempty"`
	Mode            *string `json:"mode,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
}

// SetReadyRequest is the request body for toggling readiness
type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// TransferHostRequest is the request body for transferring host
type TransferHostRequest struct {
	Connection string `json:"connection"`
}

// SubmitScoreRequest is the request body for submitting a score
type SubmitScoreRequest struct {
	Score int `json:"score"`
	WPM   int `json:"wpm"`
}
