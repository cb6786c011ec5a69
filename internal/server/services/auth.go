// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, login, password lifecycle, and
// issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/common"
	"github.com/dmitrijs2005/authdesk/internal/dbx"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/dmitrijs2005/authdesk/internal/passhash"
	"github.com/dmitrijs2005/authdesk/internal/server/auth"
	"github.com/dmitrijs2005/authdesk/internal/server/config"
	"github.com/dmitrijs2005/authdesk/internal/server/models"
	"github.com/dmitrijs2005/authdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authdesk/internal/validation"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// AuthService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - password change / reset flows
type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	logger          logging.Logger
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	resetTokenTTL   time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:              db,
		repomanager:     m,
		logger:          logger,
		jwtSecret:       []byte(cfg.SecretKey),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		resetTokenTTL:   cfg.ResetTokenTTL,
	}
}

// Register validates the fields and creates a new account. A taken username
// or email yields common.ErrorAlreadyExists wrapped with a field hint.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = validation.Sanitize(username)
	email = strings.ToLower(validation.Sanitize(email))

	if err := validation.Username(username); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}
	if err := validation.Email(email); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}
	if err := validation.Password(password); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", common.ErrorAlreadyExists)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", common.ErrorAlreadyExists)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	salt := passhash.GenerateSalt()

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passhash.HashWithSalt(password, salt),
		Salt:         salt,
		Status:       models.UserStatusActive,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: account already exists", common.ErrorAlreadyExists)
		}
		return nil, common.ErrorInternal
	}

	// Role assignment is a separate step and must never undo the account
	// creation above. A failure is logged and left for later reconciliation.
	created.Metadata = map[string]any{"role": "user"}
	if err := repo.SetMetadata(ctx, created.ID, created.Metadata); err != nil {
		s.logger.Warn(ctx, "default role assignment failed", "user_id", created.ID, "error", err)
	}

	return created, nil
}

// Login verifies credentials and, on success, returns the user and a new
// TokenPair. Any credential failure yields common.ErrorUnauthorized with no
// hint of whether the account exists.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, *TokenPair, error) {
	identifier := validation.Sanitize(usernameOrEmail)
	repo := s.repomanager.Users(s.db)

	var (
		user *models.User
		err  error
	)
	if validation.IsEmail(identifier) {
		user, err = repo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if user.Status != models.UserStatusActive {
		return nil, nil, common.ErrorUnauthorized
	}
	if !s.checkPassword(password, user) {
		return nil, nil, common.ErrorUnauthorized
	}

	// Best effort, a failed timestamp update must not block the login.
	_ = repo.TouchLastLogin(ctx, user.ID)

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if user.Status != models.UserStatusActive {
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// VerifyAccess validates an access token and returns the account it belongs
// to. Disabled accounts fail verification even with a valid token.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if user.Status != models.UserStatusActive {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Logout revokes every refresh token the user holds. The access token stays
// valid until it expires on its own.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// ChangePassword verifies the current password and replaces the credential
// material. All refresh tokens are revoked so other devices must log in
// again.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if err := validation.Password(newPassword); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return common.ErrorUnauthorized
	}
	if !s.checkPassword(oldPassword, user) {
		return fmt.Errorf("%w: current password is incorrect", common.ErrorUnauthorized)
	}

	return s.replacePassword(ctx, userID, newPassword)
}

// ForgotPassword issues a reset token for the account behind email. When no
// such account exists it reports success with an empty token, so the
// endpoint never leaks which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(validation.Sanitize(email))
	if err := validation.Email(email); err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", common.ErrorInternal
	}

	token, err := common.MakeRandURLSafeString(32)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := s.repomanager.ResetTokens(s.db).Upsert(ctx, user.ID, token, s.resetTokenTTL); err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password. The token is
// single-use: it is deleted in the same transaction that updates the
// credential.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.Password(newPassword); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	reset, err := s.repomanager.ResetTokens(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if reset.Expires.Before(time.Now()) {
		return common.ErrResetTokenExpired
	}

	salt := passhash.GenerateSalt()
	hash := passhash.HashWithSalt(newPassword, salt)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, reset.UserID, hash, salt); err != nil {
			return err
		}
		if err := s.repomanager.ResetTokens(tx).Delete(ctx, reset.UserID); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, reset.UserID)
	})
}

// PurgeExpiredTokens removes refresh tokens past their expiry. Run
// periodically by the app.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx)
}

// --- helpers below ---

// checkPassword verifies a candidate against the stored hash, accepting the
// legacy single-round digest for accounts that predate the PBKDF2 format.
func (s *AuthService) checkPassword(password string, user *models.User) bool {
	if strings.Contains(user.PasswordHash, ":") {
		return passhash.Verify(password, user.PasswordHash)
	}
	return passhash.LegacyVerify(password, user.Salt, user.PasswordHash)
}

func (s *AuthService) replacePassword(ctx context.Context, userID int64, newPassword string) error {
	salt := passhash.GenerateSalt()
	hash := passhash.HashWithSalt(newPassword, salt)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, userID, hash, salt); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID)
	})
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Username, s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenTTL); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
	}, nil
}
