// Package users declares the server-side repository contract for account
// rows.
package users

import (
	"context"

	"github.com/dmitrijs2005/authdesk/internal/server/models"
)

// Repository defines the persistence operations the auth service needs.
type Repository interface {
	// Create inserts a new user and returns it with the assigned ID.
	// A username or email collision yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given ID, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername returns the user with the given username, or
	// common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail returns the user with the given email, or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePassword replaces the stored credential material.
	UpdatePassword(ctx context.Context, userID int64, passwordHash, salt string) error

	// TouchLastLogin records a successful login.
	TouchLastLogin(ctx context.Context, userID int64) error

	// SetMetadata replaces the metadata document.
	SetMetadata(ctx context.Context, userID int64, metadata map[string]any) error
}
