// Package auth is the client-side orchestrator: it validates input, drives
// the HTTP gateway, and keeps the session store in sync with the outcome.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/client/api"
	"github.com/dmitrijs2005/authdesk/internal/client/config"
	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/client/session"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/dmitrijs2005/authdesk/internal/validation"
)

// Service coordinates login state between the gateway client and the
// session store. Input validation happens here, before any network call,
// so the gateway only ever sees well-formed requests.
type Service struct {
	cfg      *config.Config
	client   api.Client
	sessions *session.Manager
	logger   logging.Logger

	refreshMu   sync.Mutex
	refreshStop chan struct{}
	refreshWG   sync.WaitGroup
}

// NewService wires an orchestrator over the given gateway and session
// manager.
func NewService(cfg *config.Config, client api.Client, sessions *session.Manager, logger logging.Logger) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		logger:   logger.With("module", "auth"),
	}
}

// Subscribe relays session lifecycle events to the caller.
func (s *Service) Subscribe(l session.Listener) {
	s.sessions.Subscribe(l)
}

// IsLoggedIn reports whether a user session is active.
func (s *Service) IsLoggedIn() bool {
	return s.sessions.IsActive()
}

// CurrentUser returns the logged-in user, or nil.
func (s *Service) CurrentUser() *models.User {
	return s.sessions.CurrentUser()
}

// Login validates the form, authenticates against the backend and starts a
// session on success.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) *models.AuthResponse {
	req.UsernameOrEmail = validation.Sanitize(req.UsernameOrEmail)
	if err := validation.LoginInput(req.UsernameOrEmail, req.Password); err != nil {
		return models.Failure(err.Error())
	}
	if s.sessions.IsActive() {
		return models.Failure("already logged in")
	}

	resp := s.client.Login(ctx, req)
	if !resp.Success {
		return resp
	}

	s.sessions.StartSession(ctx, resp.User, req.RememberMe)
	s.startAutoRefresh()
	return resp
}

// Register validates the form and creates the account. A successful
// registration does not log the user in; they authenticate explicitly
// afterwards.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) *models.AuthResponse {
	req.Username = validation.Sanitize(req.Username)
	req.Email = validation.Sanitize(req.Email)
	if err := validation.RegisterInput(req.Username, req.Email, req.Password, req.ConfirmPassword); err != nil {
		return models.Failure(err.Error())
	}
	return s.client.Register(ctx, req)
}

// Logout ends the session. Always succeeds locally.
func (s *Service) Logout(ctx context.Context) *models.AuthResponse {
	s.stopAutoRefresh()
	resp := s.client.Logout(ctx)
	s.sessions.EndSession(ctx, false)
	return resp
}

// ChangePassword validates the change locally, then performs it against
// the backend using the active session's access token.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) *models.AuthResponse {
	if !s.sessions.IsActive() {
		return models.Failure("not logged in")
	}
	if err := validation.PasswordChange(oldPassword, newPassword, confirmPassword); err != nil {
		return models.Failure(err.Error())
	}
	resp := s.client.ChangePassword(ctx, oldPassword, newPassword)
	if resp.Success {
		s.sessions.UpdateActivity(ctx)
	}
	return resp
}

// ForgotPassword requests a reset email.
func (s *Service) ForgotPassword(ctx context.Context, email string) *models.AuthResponse {
	return s.client.ForgotPassword(ctx, validation.Sanitize(email))
}

// ResetPassword completes a reset with the emailed token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) *models.AuthResponse {
	if newPassword != confirmPassword {
		return models.Failure("passwords do not match")
	}
	if err := validation.Password(newPassword); err != nil {
		return models.Failure(err.Error())
	}
	return s.client.ResetPassword(ctx, validation.Sanitize(token), newPassword)
}

// TryAutoLogin attempts to restore a persisted session at startup. Returns
// true when the user is logged in afterwards.
func (s *Service) TryAutoLogin(ctx context.Context) bool {
	if !s.sessions.RestoreSession(ctx) {
		return false
	}
	s.startAutoRefresh()
	return true
}

// Close stops background work. The session itself is left intact so a
// remembered login survives the shutdown.
func (s *Service) Close() {
	s.stopAutoRefresh()
}

// startAutoRefresh rotates the access token ahead of its expiry so an
// interactive session never hits a hard expiration. Idempotent.
func (s *Service) startAutoRefresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.refreshStop != nil {
		return
	}
	s.refreshStop = make(chan struct{})

	s.refreshWG.Add(1)
	go func(stop chan struct{}) {
		defer s.refreshWG.Done()
		ticker := time.NewTicker(s.cfg.AutoRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.refreshOnce(context.Background())
			}
		}
	}(s.refreshStop)
}

func (s *Service) stopAutoRefresh() {
	s.refreshMu.Lock()
	stop := s.refreshStop
	s.refreshStop = nil
	s.refreshMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.refreshWG.Wait()
}

func (s *Service) refreshOnce(ctx context.Context) {
	if !s.sessions.IsActive() {
		return
	}
	if resp := s.client.RefreshAccessToken(ctx); resp.Success {
		s.sessions.UpdateTokens(ctx)
		s.logger.Debug(ctx, "access token rotated")
	} else {
		s.logger.Warn(ctx, "scheduled token refresh failed", "message", resp.Message)
	}
}
