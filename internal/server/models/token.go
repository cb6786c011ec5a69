package models

import "time"

// RefreshToken is a server-stored opaque token. Rotated on every use.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// PasswordResetToken is a single-use token mailed to the user. At most one
// live token exists per user; requesting a new one replaces the old.
type PasswordResetToken struct {
	UserID    int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
