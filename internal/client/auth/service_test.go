package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dmitrijs2005/authdesk/internal/client/api"
	"github.com/dmitrijs2005/authdesk/internal/client/config"
	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/client/session"
	"github.com/dmitrijs2005/authdesk/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records calls and returns scripted responses.
type fakeClient struct {
	accessToken  string
	refreshToken string

	loginResp    *models.AuthResponse
	registerResp *models.AuthResponse
	changeResp   *models.AuthResponse
	forgotResp   *models.AuthResponse
	resetResp    *models.AuthResponse

	loginCalls    int
	registerCalls int
	logoutCalls   int
	lastLogin     models.LoginRequest
	lastRegister  models.RegisterRequest
}

var _ api.Client = (*fakeClient)(nil)

func (f *fakeClient) AccessToken() string  { return f.accessToken }
func (f *fakeClient) RefreshToken() string { return f.refreshToken }
func (f *fakeClient) SetTokens(a, r string) {
	f.accessToken = a
	if r != "" {
		f.refreshToken = r
	}
}
func (f *fakeClient) ClearTokens() { f.accessToken, f.refreshToken = "", "" }

func (f *fakeClient) Login(ctx context.Context, req models.LoginRequest) *models.AuthResponse {
	f.loginCalls++
	f.lastLogin = req
	if f.loginResp.Success {
		f.SetTokens(f.loginResp.AccessToken, f.loginResp.RefreshToken)
	}
	return f.loginResp
}

func (f *fakeClient) Register(ctx context.Context, req models.RegisterRequest) *models.AuthResponse {
	f.registerCalls++
	f.lastRegister = req
	return f.registerResp
}

func (f *fakeClient) VerifyToken(ctx context.Context, token string) *models.AuthResponse {
	return &models.AuthResponse{Success: f.accessToken != ""}
}

func (f *fakeClient) RefreshAccessToken(ctx context.Context) *models.AuthResponse {
	return models.Failure("not implemented")
}

func (f *fakeClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) *models.AuthResponse {
	return f.changeResp
}

func (f *fakeClient) Logout(ctx context.Context) *models.AuthResponse {
	f.logoutCalls++
	f.ClearTokens()
	return &models.AuthResponse{Success: true, Message: "logout successful"}
}

func (f *fakeClient) ForgotPassword(ctx context.Context, email string) *models.AuthResponse {
	return f.forgotResp
}

func (f *fakeClient) ResetPassword(ctx context.Context, token, newPassword string) *models.AuthResponse {
	return f.resetResp
}

func newTestService(t *testing.T, fc *fakeClient) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sessions, err := session.NewManager(cfg, fc, logger)
	require.NoError(t, err)
	svc := NewService(cfg, fc, sessions, logger)
	t.Cleanup(func() {
		svc.Close()
		sessions.EndSession(context.Background(), false)
	})
	return svc
}

func okLogin() *models.AuthResponse {
	return &models.AuthResponse{
		Success:      true,
		User:         &models.User{ID: 7, Username: "alice", Email: "alice@example.com", IsActive: true},
		AccessToken:  "jwt",
		RefreshToken: "refresh",
	}
}

func TestLogin_StartsSession(t *testing.T) {
	fc := &fakeClient{loginResp: okLogin()}
	svc := newTestService(t, fc)

	resp := svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "secret1",
	})

	require.True(t, resp.Success)
	assert.True(t, svc.IsLoggedIn())
	assert.Equal(t, "alice", svc.CurrentUser().Username)
	assert.Equal(t, 1, fc.loginCalls)
}

func TestLogin_ValidationShortCircuits(t *testing.T) {
	fc := &fakeClient{loginResp: okLogin()}
	svc := newTestService(t, fc)

	cases := []struct {
		name string
		req  models.LoginRequest
	}{
		{"empty identifier", models.LoginRequest{Password: "secret1"}},
		{"short identifier", models.LoginRequest{UsernameOrEmail: "ab", Password: "secret1"}},
		{"empty password", models.LoginRequest{UsernameOrEmail: "alice"}},
		{"short password", models.LoginRequest{UsernameOrEmail: "alice", Password: "abc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := svc.Login(context.Background(), tc.req)
			assert.False(t, resp.Success)
		})
	}
	assert.Equal(t, 0, fc.loginCalls, "invalid input must never reach the network")
}

func TestLogin_SanitizesIdentifier(t *testing.T) {
	fc := &fakeClient{loginResp: okLogin()}
	svc := newTestService(t, fc)

	svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: `  alice<script>  `, Password: "secret1",
	})

	assert.Equal(t, "alicescript", fc.lastLogin.UsernameOrEmail)
}

func TestLogin_RejectedByServer(t *testing.T) {
	fc := &fakeClient{loginResp: models.Failure("invalid username or password")}
	svc := newTestService(t, fc)

	resp := svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "wrong123",
	})

	assert.False(t, resp.Success)
	assert.False(t, svc.IsLoggedIn())
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	fc := &fakeClient{loginResp: okLogin()}
	svc := newTestService(t, fc)

	require.True(t, svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "secret1",
	}).Success)

	resp := svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "secret1",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, 1, fc.loginCalls)
}

func TestRegister_Validation(t *testing.T) {
	fc := &fakeClient{registerResp: &models.AuthResponse{Success: true}}
	svc := newTestService(t, fc)

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"digit-led username", models.RegisterRequest{Username: "1alice", Email: "a@x.com", Password: "pass123", ConfirmPassword: "pass123"}},
		{"bad email", models.RegisterRequest{Username: "alice", Email: "nope", Password: "pass123", ConfirmPassword: "pass123"}},
		{"digits-only password", models.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "123456", ConfirmPassword: "123456"}},
		{"mismatched confirm", models.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pass123", ConfirmPassword: "pass124"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := svc.Register(context.Background(), tc.req)
			assert.False(t, resp.Success)
		})
	}
	assert.Equal(t, 0, fc.registerCalls)

	resp := svc.Register(context.Background(), models.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "pass123", ConfirmPassword: "pass123",
	})
	assert.True(t, resp.Success)
	assert.False(t, svc.IsLoggedIn(), "registration must not log the user in")
}

func TestLogout(t *testing.T) {
	fc := &fakeClient{loginResp: okLogin()}
	svc := newTestService(t, fc)

	require.True(t, svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "secret1",
	}).Success)

	resp := svc.Logout(context.Background())
	assert.True(t, resp.Success)
	assert.False(t, svc.IsLoggedIn())
	assert.Nil(t, svc.CurrentUser())
	assert.Equal(t, 1, fc.logoutCalls)
}

func TestChangePassword(t *testing.T) {
	fc := &fakeClient{
		loginResp:  okLogin(),
		changeResp: &models.AuthResponse{Success: true, Message: "password changed"},
	}
	svc := newTestService(t, fc)

	// Not logged in yet.
	resp := svc.ChangePassword(context.Background(), "old-pass1", "new-pass1", "new-pass1")
	assert.False(t, resp.Success)

	require.True(t, svc.Login(context.Background(), models.LoginRequest{
		UsernameOrEmail: "alice", Password: "secret1",
	}).Success)

	resp = svc.ChangePassword(context.Background(), "old-pass1", "new-pass1", "other")
	assert.False(t, resp.Success, "mismatched confirmation rejected locally")

	resp = svc.ChangePassword(context.Background(), "same-pass1", "same-pass1", "same-pass1")
	assert.False(t, resp.Success, "unchanged password rejected locally")

	resp = svc.ChangePassword(context.Background(), "old-pass1", "new-pass1", "new-pass1")
	assert.True(t, resp.Success)
}

func TestResetPassword_LocalChecks(t *testing.T) {
	fc := &fakeClient{resetResp: &models.AuthResponse{Success: true}}
	svc := newTestService(t, fc)

	resp := svc.ResetPassword(context.Background(), "tok", "newpass1", "different")
	assert.False(t, resp.Success)

	resp = svc.ResetPassword(context.Background(), "tok", "123456", "123456")
	assert.False(t, resp.Success, "digits-only password rejected")

	resp = svc.ResetPassword(context.Background(), "tok", "newpass1", "newpass1")
	assert.True(t, resp.Success)
}

func TestTryAutoLogin_NoPersistedSession(t *testing.T) {
	fc := &fakeClient{}
	svc := newTestService(t, fc)

	assert.False(t, svc.TryAutoLogin(context.Background()))
	assert.False(t, svc.IsLoggedIn())
}
