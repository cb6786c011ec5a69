// Package httpapi exposes the auth service over JSON/HTTP: public account
// endpoints at the root plus token-guarded session endpoints under
// /api/auth/.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/common"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/dmitrijs2005/authdesk/internal/server/models"
	"github.com/dmitrijs2005/authdesk/internal/server/services"
	"github.com/gorilla/mux"
)

// AuthProvider is the service surface the handlers depend on.
type AuthProvider interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyAccess(ctx context.Context, accessToken string) (*models.User, error)
	Logout(ctx context.Context, userID int64) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	svc     AuthProvider
	logger  logging.Logger
	started time.Time
}

// NewHandler constructs the endpoint set.
func NewHandler(svc AuthProvider, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("module", "httpapi"), started: time.Now()}
}

// NewRouter assembles the full route table with middleware applied.
func NewRouter(h *Handler, logger logging.Logger, corsOrigin string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, cors(corsOrigin), recovery(logger), logRequests(logger))

	r.HandleFunc("/test", h.Test).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/status", h.Status).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost, http.MethodOptions)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/verify", h.Verify).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/logout", h.requireAuth(h.Logout)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/change-password", h.requireAuth(h.ChangePassword)).Methods(http.MethodPost, http.MethodOptions)

	return r
}

// requireAuth validates the bearer token and puts the account on the request
// context before calling next.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := h.svc.VerifyAccess(r.Context(), token)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user)))
	}
}

// Test is a connectivity probe.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "auth api is reachable",
	})
}

// Status reports service health and uptime.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
		"uptime":  time.Since(h.started).Truncate(time.Second).String(),
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "registration successful",
		"user":    userPayload(user.ID, user.Username, user.Email, user.Status == models.UserStatusActive),
	})
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Login verifies credentials and issues a token pair. The access token is
// reported under both the accessToken and the legacy sessionToken key.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// One message for every credential failure: the endpoint must not
		// reveal whether the account exists.
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "login successful",
		"user":         userPayload(user.ID, user.Username, user.Email, user.Status == models.UserStatusActive),
		"accessToken":  pair.AccessToken,
		"sessionToken": pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
	})
}

// Verify checks the bearer token and returns the account it belongs to.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	user, err := h.svc.VerifyAccess(r.Context(), token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "token is valid",
		"user":    userPayload(user.ID, user.Username, user.Email, user.Status == models.UserStatusActive),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token and mints a new access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	pair, err := h.svc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "token refreshed",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
	})
}

// Logout revokes the caller's refresh tokens.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logout successful",
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword replaces the caller's password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	user := UserFromContext(r.Context())
	if err := h.svc.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password changed",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token. The response is identical whether or
// not the email is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if token != "" {
		// Mail delivery is out of process; the token is only logged here.
		h.logger.Info(r.Context(), "password reset token issued",
			"request_id", RequestIDFromContext(r.Context()))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "if the email is registered, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password reset successful",
	})
}

// decode parses the JSON body into dst, emitting a 400 on failure. An empty
// body is treated as an empty object so field validation reports the missing
// fields instead of a decode error.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unmatched is a 500 with a generic message so internals never leak.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, trimSentinel(err, common.ErrorValidation))
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, trimSentinel(err, common.ErrorAlreadyExists))
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, trimSentinel(err, common.ErrorUnauthorized))
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, common.ErrResetTokenExpired):
		writeError(w, http.StatusBadRequest, "reset token expired")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error(r.Context(), "unhandled service error",
			"request_id", RequestIDFromContext(r.Context()), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// trimSentinel returns the human part of "sentinel: detail" errors, falling
// back to the sentinel's own text.
func trimSentinel(err error, sentinel error) string {
	msg := err.Error()
	if rest, found := strings.CutPrefix(msg, sentinel.Error()+": "); found {
		return rest
	}
	return msg
}
