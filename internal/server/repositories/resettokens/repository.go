// Package resettokens declares the repository contract for single-use
// password-reset tokens.
package resettokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/server/models"
)

// Repository manages password-reset tokens. A user holds at most one live
// token; issuing a new one replaces the previous.
type Repository interface {
	// Upsert stores a reset token for userID, replacing any existing one,
	// with an expiry of now+validity.
	Upsert(ctx context.Context, userID int64, token string, validity time.Duration) error

	// Find looks up a reset token, or returns common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.PasswordResetToken, error)

	// Delete removes the user's reset token. Deleting a non-existent token
	// is not an error.
	Delete(ctx context.Context, userID int64) error
}
