package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/authdesk/internal/common"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/dmitrijs2005/authdesk/internal/server/models"
	"github.com/dmitrijs2005/authdesk/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a scriptable AuthProvider.
type fakeAuth struct {
	user *models.User
	pair *services.TokenPair

	registerErr error
	loginErr    error
	refreshErr  error
	verifyErr   error
	changeErr   error
	resetErr    error

	forgotToken string
	forgotErr   error

	loggedOutID int64
	panicOn     string
}

func (f *fakeAuth) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if f.panicOn == "register" {
		panic("boom")
	}
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.user, nil
}

func (f *fakeAuth) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, *services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return f.user, f.pair, nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.pair, nil
}

func (f *fakeAuth) VerifyAccess(ctx context.Context, accessToken string) (*models.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.user, nil
}

func (f *fakeAuth) Logout(ctx context.Context, userID int64) error {
	f.loggedOutID = userID
	return nil
}

func (f *fakeAuth) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	return f.changeErr
}

func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) (string, error) {
	return f.forgotToken, f.forgotErr
}

func (f *fakeAuth) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.resetErr
}

func testUser() *models.User {
	return &models.User{ID: 7, Username: "alice", Email: "alice@example.com", Status: models.UserStatusActive}
}

func testPair() *services.TokenPair {
	return &services.TokenPair{AccessToken: "jwt", RefreshToken: "refresh", ExpiresIn: 900}
}

func newTestRouter(fa *fakeAuth) http.Handler {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(NewHandler(fa, logger), logger, "*")
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	payload := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestTestEndpoint(t *testing.T) {
	router := newTestRouter(&fakeAuth{})
	rec, payload := doJSON(t, router, http.MethodGet, "/test", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(&fakeAuth{})
	rec, payload := doJSON(t, router, http.MethodGet, "/status", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}

func TestRegister(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser()})
	rec, payload := doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"username": "alice", "email": "alice@example.com", "password": "secret1"}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, payload["success"])
	user := payload["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegister_Conflict(t *testing.T) {
	router := newTestRouter(&fakeAuth{
		registerErr: fmt.Errorf("%w: username already exists", common.ErrorAlreadyExists),
	})
	rec, payload := doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"username": "alice", "email": "a@x.com", "password": "secret1"}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username already exists", payload["error"])
}

func TestRegister_Validation(t *testing.T) {
	router := newTestRouter(&fakeAuth{
		registerErr: fmt.Errorf("%w: username must be at least 3 characters", common.ErrorValidation),
	})
	rec, payload := doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"username": "ab", "email": "a@x.com", "password": "secret1"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username must be at least 3 characters", payload["error"])
}

func TestRegister_BadJSON(t *testing.T) {
	router := newTestRouter(&fakeAuth{})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser(), pair: testPair()})
	rec, payload := doJSON(t, router, http.MethodPost, "/login",
		map[string]any{"username": "alice", "password": "secret1"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt", payload["accessToken"])
	assert.Equal(t, "jwt", payload["sessionToken"], "legacy key must mirror accessToken")
	assert.Equal(t, "refresh", payload["refreshToken"])
	assert.Equal(t, float64(900), payload["expiresIn"])
	assert.NotNil(t, payload["user"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router := newTestRouter(&fakeAuth{loginErr: common.ErrorUnauthorized})
	rec, payload := doJSON(t, router, http.MethodPost, "/login",
		map[string]any{"username": "alice", "password": "wrong"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", payload["error"])
}

func TestVerify(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser()})
	rec, payload := doJSON(t, router, http.MethodGet, "/api/auth/verify", nil,
		map[string]string{"Authorization": "Bearer jwt"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.NotNil(t, payload["user"])
}

func TestVerify_MissingToken(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser()})
	rec, _ := doJSON(t, router, http.MethodGet, "/api/auth/verify", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_ExpiredToken(t *testing.T) {
	router := newTestRouter(&fakeAuth{verifyErr: common.ErrTokenExpired})
	rec, payload := doJSON(t, router, http.MethodGet, "/api/auth/verify", nil,
		map[string]string{"Authorization": "Bearer stale"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", payload["error"])
}

func TestRefresh(t *testing.T) {
	router := newTestRouter(&fakeAuth{pair: testPair()})
	rec, payload := doJSON(t, router, http.MethodPost, "/api/auth/refresh",
		map[string]any{"refreshToken": "old"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt", payload["accessToken"])
	assert.Equal(t, "refresh", payload["refreshToken"])
}

func TestRefresh_MissingToken(t *testing.T) {
	router := newTestRouter(&fakeAuth{pair: testPair()})
	rec, _ := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_Expired(t *testing.T) {
	router := newTestRouter(&fakeAuth{refreshErr: common.ErrRefreshTokenExpired})
	rec, payload := doJSON(t, router, http.MethodPost, "/api/auth/refresh",
		map[string]any{"refreshToken": "stale"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "refresh token expired", payload["error"])
}

func TestLogout(t *testing.T) {
	fa := &fakeAuth{user: testUser()}
	router := newTestRouter(fa)
	rec, payload := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil,
		map[string]string{"Authorization": "Bearer jwt"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, int64(7), fa.loggedOutID)
}

func TestLogout_RequiresAuth(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser()})
	rec, _ := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	router := newTestRouter(&fakeAuth{user: testUser()})
	rec, payload := doJSON(t, router, http.MethodPost, "/api/auth/change-password",
		map[string]any{"oldPassword": "old-pass1", "newPassword": "new-pass1"},
		map[string]string{"Authorization": "Bearer jwt"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "password changed", payload["message"])
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	router := newTestRouter(&fakeAuth{
		user:      testUser(),
		changeErr: fmt.Errorf("%w: current password is incorrect", common.ErrorUnauthorized),
	})
	rec, payload := doJSON(t, router, http.MethodPost, "/api/auth/change-password",
		map[string]any{"oldPassword": "wrong", "newPassword": "new-pass1"},
		map[string]string{"Authorization": "Bearer jwt"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "current password is incorrect", payload["error"])
}

func TestForgotPassword_SameResponseEitherWay(t *testing.T) {
	known := newTestRouter(&fakeAuth{user: testUser(), forgotToken: "tok"})
	unknown := newTestRouter(&fakeAuth{})

	rec1, payload1 := doJSON(t, known, http.MethodPost, "/forgot-password",
		map[string]any{"email": "alice@example.com"}, nil)
	rec2, payload2 := doJSON(t, unknown, http.MethodPost, "/forgot-password",
		map[string]any{"email": "nobody@example.com"}, nil)

	assert.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, rec1.Code, rec2.Code)
	assert.Equal(t, payload1["message"], payload2["message"])
}

func TestEmptyBodyTreatedAsEmptyObject(t *testing.T) {
	// An empty POST body parses as {}; the error comes from field
	// validation, not from the JSON decoder.
	router := newTestRouter(&fakeAuth{
		forgotErr: fmt.Errorf("%w: invalid email format", common.ErrorValidation),
	})

	rec, payload := doJSON(t, router, http.MethodPost, "/forgot-password", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email format", payload["error"])

	rec, payload = doJSON(t, router, http.MethodPost, "/api/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "refreshToken is required", payload["error"])
}

func TestResetPassword(t *testing.T) {
	router := newTestRouter(&fakeAuth{})
	rec, payload := doJSON(t, router, http.MethodPost, "/reset-password",
		map[string]any{"token": "tok", "newPassword": "new-pass1"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "password reset successful", payload["message"])
}

func TestResetPassword_InvalidToken(t *testing.T) {
	router := newTestRouter(&fakeAuth{resetErr: common.ErrInvalidToken})
	rec, payload := doJSON(t, router, http.MethodPost, "/reset-password",
		map[string]any{"token": "bad", "newPassword": "new-pass1"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", payload["error"])
}

func TestPreflight(t *testing.T) {
	router := newTestRouter(&fakeAuth{})
	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newTestRouter(&fakeAuth{panicOn: "register"})
	rec, payload := doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"username": "alice", "email": "a@x.com", "password": "secret1"}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", payload["error"])
}
