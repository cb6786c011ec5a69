// Package api implements the HTTP gateway client for the remote auth
// service. Every operation returns a structured AuthResponse; expected
// failure modes (network errors, HTTP errors, validation) are captured into
// the response instead of being returned as Go errors, so callers never need
// to branch on both.
package api

import (
	"context"

	"github.com/dmitrijs2005/authdesk/internal/client/models"
)

// Client is the gateway surface consumed by the session store and the auth
// orchestrator.
type Client interface {
	Login(ctx context.Context, req models.LoginRequest) *models.AuthResponse
	Register(ctx context.Context, req models.RegisterRequest) *models.AuthResponse
	VerifyToken(ctx context.Context, token string) *models.AuthResponse
	RefreshAccessToken(ctx context.Context) *models.AuthResponse
	ChangePassword(ctx context.Context, oldPassword, newPassword string) *models.AuthResponse
	Logout(ctx context.Context) *models.AuthResponse
	ForgotPassword(ctx context.Context, email string) *models.AuthResponse
	ResetPassword(ctx context.Context, token, newPassword string) *models.AuthResponse

	// Token bookkeeping. The client holds the current token pair so that
	// authenticated calls and refresh work without threading tokens through
	// every caller.
	AccessToken() string
	RefreshToken() string
	SetTokens(accessToken, refreshToken string)
	ClearTokens()
}
