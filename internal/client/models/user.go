// Package models defines the client-side data types exchanged with the auth
// API and persisted in the session file.
package models

import "time"

// User is the identity record as the server reports it. The JSON tags match
// both the wire format and the session-file format, so the same struct
// round-trips through either.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	IsActive  bool      `json:"is_active"`
}

// IsValid reports whether the record carries the minimum fields a usable
// identity needs.
func (u *User) IsValid() bool {
	return u != nil && u.Username != "" && u.Email != ""
}

// LoginRequest carries the login form. Ephemeral, never persisted.
type LoginRequest struct {
	UsernameOrEmail string
	Password        string
	RememberMe      bool
}

// RegisterRequest carries the registration form. Valid only when Password
// equals ConfirmPassword; the orchestrator enforces that before any network
// call.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResponse is the uniform result of every gateway operation. It is never
// partially populated: Success=false implies no tokens and no user.
type AuthResponse struct {
	Success      bool
	Message      string
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Failure builds a failed response with a user-facing message.
func Failure(message string) *AuthResponse {
	return &AuthResponse{Success: false, Message: message}
}
