package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/client/config"
	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/dmitrijs2005/authdesk/internal/validation"
	"github.com/sethvargo/go-retry"
)

const userAgent = "authdesk-client/1.0"

// HTTPClient talks JSON over HTTP to the auth backend with a bounded retry
// policy: network-class failures (connect errors, timeouts) are retried with
// a linearly growing delay, HTTP-level errors are terminal and surfaced with
// the server's message.
type HTTPClient struct {
	baseURL        string
	http           *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	logger         logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a gateway client from the client config.
func NewHTTPClient(cfg *config.Config, logger logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		http:           &http.Client{Timeout: cfg.RequestTimeout},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         logger.With("module", "api_client"),
	}
}

func (c *HTTPClient) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *HTTPClient) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}

func (c *HTTPClient) SetTokens(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	if refreshToken != "" {
		c.refreshToken = refreshToken
	}
}

func (c *HTTPClient) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

// makeRequest performs one logical HTTP exchange. The returned error is
// non-nil only for terminal transport problems: network failure after the
// retry budget is spent, or an undecodable success body. HTTP status errors
// are NOT errors here; the caller inspects the status code and payload.
func (c *HTTPClient) makeRequest(ctx context.Context, method, endpoint string, body any, bearer string) (int, map[string]any, error) {
	reqURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return 0, nil, fmt.Errorf("bad endpoint %q: %w", endpoint, err)
	}

	var reqBody []byte
	if body != nil {
		reqBody, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
	}

	// Linear backoff: baseDelay × attempt number. Only network-class
	// failures are marked retryable below, so WithMaxRetries caps the
	// total at maxRetries+1 attempts.
	attempt := 0
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return c.retryBaseDelay * time.Duration(attempt), false
	})

	var (
		status  int
		payload map[string]any
	)

	err = retry.Do(ctx, retry.WithMaxRetries(uint64(c.maxRetries), backoff), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn(ctx, "request failed, will retry if budget remains",
				"method", method, "url", reqURL, "error", err.Error())
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		status = resp.StatusCode
		payload = map[string]any{}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				if status >= 200 && status < 300 {
					// An undecodable success body is terminal.
					return fmt.Errorf("%w: %v", ErrBadResponse, err)
				}
				// Error bodies are allowed to be non-JSON.
				payload = map[string]any{"message": http.StatusText(status)}
			}
		}

		c.logger.Debug(ctx, "request complete", "method", method, "url", reqURL, "status", status)
		return nil
	})
	if err != nil {
		c.logger.Error(ctx, "request failed", "method", method, "url", reqURL, "error", err.Error())
		if errors.Is(err, ErrBadResponse) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return status, payload, nil
}

// Login posts credentials and, on success, stores the returned token pair.
// The server may report the access token under the legacy "sessionToken" key.
func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) *models.AuthResponse {
	c.logger.Info(ctx, "login attempt", "user", req.UsernameOrEmail)

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/login", map[string]any{
		"username":   req.UsernameOrEmail,
		"password":   req.Password,
		"rememberMe": req.RememberMe,
	}, "")
	if err != nil {
		return models.Failure(fmt.Sprintf("login failed: %v", err))
	}

	user := userFromPayload(payload)
	if status != http.StatusOK || user == nil {
		msg := messageFromPayload(payload, "login failed")
		c.logger.Warn(ctx, "login rejected", "user", req.UsernameOrEmail, "message", msg)
		return models.Failure(msg)
	}

	access := stringField(payload, "sessionToken")
	if access == "" {
		access = stringField(payload, "accessToken")
	}
	refresh := stringField(payload, "refreshToken")
	c.SetTokens(access, refresh)

	c.logger.Info(ctx, "login ok", "user", req.UsernameOrEmail)
	return &models.AuthResponse{
		Success:      true,
		Message:      messageFromPayload(payload, "login successful"),
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    intField(payload, "expiresIn"),
	}
}

// Register posts the registration fields; success requires a 200/201 status
// plus an explicit success flag in the body.
func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) *models.AuthResponse {
	c.logger.Info(ctx, "register attempt", "user", req.Username)

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/register", map[string]any{
		"username": req.Username,
		"email":    req.Email,
		"password": req.Password,
	}, "")
	if err != nil {
		return models.Failure(fmt.Sprintf("registration failed: %v", err))
	}

	if (status != http.StatusOK && status != http.StatusCreated) || !boolField(payload, "success") {
		msg := messageFromPayload(payload, "registration failed")
		c.logger.Warn(ctx, "registration rejected", "user", req.Username, "message", msg)
		return models.Failure(msg)
	}

	access := stringField(payload, "accessToken")
	refresh := stringField(payload, "refreshToken")
	if access != "" {
		c.SetTokens(access, refresh)
	}

	return &models.AuthResponse{
		Success:      true,
		Message:      messageFromPayload(payload, "registration successful"),
		User:         userFromPayload(payload),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    intField(payload, "expiresIn"),
	}
}

// VerifyToken checks a token against the verification endpoint. With an
// empty argument the currently held access token is verified. A missing
// token is an ordinary failure, never an error.
func (c *HTTPClient) VerifyToken(ctx context.Context, token string) *models.AuthResponse {
	if token == "" {
		token = c.AccessToken()
	}
	if token == "" {
		return models.Failure("no token to verify")
	}

	status, payload, err := c.makeRequest(ctx, http.MethodGet, "/api/auth/verify", nil, token)
	if err != nil {
		return models.Failure("token verification failed")
	}

	if status != http.StatusOK || !boolField(payload, "success") {
		return models.Failure(messageFromPayload(payload, "token is invalid"))
	}

	return &models.AuthResponse{
		Success: true,
		Message: messageFromPayload(payload, "token is valid"),
		User:    userFromPayload(payload),
	}
}

// RefreshAccessToken exchanges the held refresh token for a new access
// token, rotating the refresh token when the server provides a new one.
func (c *HTTPClient) RefreshAccessToken(ctx context.Context) *models.AuthResponse {
	refresh := c.RefreshToken()
	if refresh == "" {
		return models.Failure("no refresh token")
	}

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": refresh,
	}, "")
	if err != nil {
		return models.Failure("token refresh failed")
	}

	if status != http.StatusOK || !boolField(payload, "success") {
		c.logger.Warn(ctx, "token refresh rejected")
		return models.Failure(messageFromPayload(payload, "token refresh failed"))
	}

	access := stringField(payload, "accessToken")
	newRefresh := stringField(payload, "refreshToken")
	c.SetTokens(access, newRefresh)

	c.logger.Debug(ctx, "access token refreshed")
	return &models.AuthResponse{
		Success:      true,
		Message:      messageFromPayload(payload, "token refreshed"),
		AccessToken:  access,
		RefreshToken: c.RefreshToken(),
		ExpiresIn:    intField(payload, "expiresIn"),
	}
}

// ChangePassword posts an authenticated password change.
func (c *HTTPClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) *models.AuthResponse {
	token := c.AccessToken()
	if token == "" {
		return models.Failure("not authenticated")
	}

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/api/auth/change-password", map[string]any{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}, token)
	if err != nil {
		return models.Failure(fmt.Sprintf("password change failed: %v", err))
	}

	if status != http.StatusOK {
		return models.Failure(messageFromPayload(payload, "password change failed"))
	}
	return &models.AuthResponse{Success: true, Message: messageFromPayload(payload, "password changed")}
}

// Logout notifies the server and clears the held tokens. Local clearing is
// never blocked by a remote failure: the call always reports success.
func (c *HTTPClient) Logout(ctx context.Context) *models.AuthResponse {
	token := c.AccessToken()
	if token == "" {
		return &models.AuthResponse{Success: true, Message: "already logged out"}
	}

	message := "logout successful"
	if _, payload, err := c.makeRequest(ctx, http.MethodPost, "/api/auth/logout", nil, token); err != nil {
		c.logger.Warn(ctx, "remote logout failed, clearing local tokens anyway", "error", err.Error())
		message = "logout successful (local only)"
	} else if m := stringField(payload, "message"); m != "" {
		message = m
	}

	c.ClearTokens()
	c.logger.Info(ctx, "logged out")
	return &models.AuthResponse{Success: true, Message: message}
}

// ForgotPassword requests a reset email. The email format is validated
// locally before any network traffic.
func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) *models.AuthResponse {
	if err := validation.Email(email); err != nil {
		return models.Failure(err.Error())
	}

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/forgot-password", map[string]any{
		"email": email,
	}, "")
	if err != nil {
		return models.Failure(fmt.Sprintf("request failed: %v", err))
	}

	if status != http.StatusOK {
		return models.Failure(messageFromPayload(payload, "request failed"))
	}
	return &models.AuthResponse{Success: true, Message: messageFromPayload(payload, "reset email sent")}
}

// ResetPassword completes a reset with the emailed token. Password length is
// validated locally first.
func (c *HTTPClient) ResetPassword(ctx context.Context, token, newPassword string) *models.AuthResponse {
	if len(newPassword) < validation.PasswordMinLen {
		return models.Failure("password must be at least 6 characters")
	}

	status, payload, err := c.makeRequest(ctx, http.MethodPost, "/reset-password", map[string]any{
		"token":       token,
		"newPassword": newPassword,
	}, "")
	if err != nil {
		return models.Failure(fmt.Sprintf("request failed: %v", err))
	}

	if status != http.StatusOK {
		return models.Failure(messageFromPayload(payload, "password reset failed"))
	}
	return &models.AuthResponse{Success: true, Message: messageFromPayload(payload, "password reset successful")}
}

// --- payload helpers ---

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func boolField(payload map[string]any, key string) bool {
	b, _ := payload[key].(bool)
	return b
}

func intField(payload map[string]any, key string) int64 {
	if f, ok := payload[key].(float64); ok {
		return int64(f)
	}
	return 0
}

// messageFromPayload prefers the server's "error" field, then "message",
// then the fallback.
func messageFromPayload(payload map[string]any, fallback string) string {
	if m := stringField(payload, "error"); m != "" {
		return m
	}
	if m := stringField(payload, "message"); m != "" {
		return m
	}
	return fallback
}

func userFromPayload(payload map[string]any) *models.User {
	raw, ok := payload["user"]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil
	}
	return user
}
