// Package models defines server-side data models persisted in the database.
package models

import "time"

// UserStatus enumerates account lifecycle states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is an account row. PasswordHash carries the full "salt:hash" PBKDF2
// string; Salt duplicates the salt for lookups that need it separately.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	Verified     bool
	Status       UserStatus
	Metadata     map[string]any
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
