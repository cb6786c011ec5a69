// Package session keeps the client's authenticated state alive across
// process restarts. It owns the session file on disk, the periodic token
// and inactivity checks, and the event fan-out other components subscribe
// to.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/client/api"
	"github.com/dmitrijs2005/authdesk/internal/client/config"
	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/filex"
	"github.com/dmitrijs2005/authdesk/internal/logging"
)

const sessionFileName = "session.json"

// sessionFile is the on-disk shape of a persisted session.
type sessionFile struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	LoginTime    time.Time    `json:"loginTime"`
	LastActivity time.Time    `json:"lastActivity"`
	RememberMe   bool         `json:"rememberMe"`
}

// Event identifies a session lifecycle transition.
type Event int

const (
	// Restored fires after a persisted session has been successfully
	// re-validated on startup.
	Restored Event = iota
	// Expired fires when a session ends for any reason other than an
	// explicit logout: token invalidation, inactivity, or old age.
	Expired
	// Ended fires on explicit logout.
	Ended
)

// Listener receives session lifecycle events. Callbacks run synchronously
// after the state change has been committed, so reading the manager from
// inside a callback observes the new state.
type Listener func(event Event, user *models.User)

// Manager holds the live session. All methods are safe for concurrent use.
type Manager struct {
	cfg    *config.Config
	client api.Client
	logger logging.Logger

	mu           sync.Mutex
	user         *models.User
	loginTime    time.Time
	lastActivity time.Time
	rememberMe   bool

	listeners []Listener

	timerMu  sync.Mutex
	stopCh   chan struct{}
	timersWG sync.WaitGroup
}

// NewManager builds a manager rooted at cfg.DataDir. The directory is
// created if missing.
func NewManager(cfg *config.Config, client api.Client, logger logging.Logger) (*Manager, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:    cfg,
		client: client,
		logger: logger.With("module", "session"),
	}, nil
}

// Subscribe registers a lifecycle listener. Not safe to call concurrently
// with session transitions; register everything during startup.
func (m *Manager) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(event Event, user *models.User) {
	for _, l := range m.listeners {
		l(event, user)
	}
}

func (m *Manager) filePath() string {
	return filepath.Join(m.cfg.DataDir, sessionFileName)
}

// IsActive reports whether a user is currently logged in.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// CurrentUser returns the logged-in user, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// AccessToken returns the current access token, empty when logged out.
func (m *Manager) AccessToken() string {
	return m.client.AccessToken()
}

// StartSession begins a session for user. When rememberMe is set the
// session is persisted so it can be restored after a restart.
func (m *Manager) StartSession(ctx context.Context, user *models.User, rememberMe bool) {
	now := time.Now()

	m.mu.Lock()
	m.user = user
	m.loginTime = now
	m.lastActivity = now
	m.rememberMe = rememberMe
	m.mu.Unlock()

	if rememberMe {
		if err := m.save(); err != nil {
			m.logger.Warn(ctx, "cannot persist session", "error", err.Error())
		}
	}

	m.startTimers()
	m.logger.Info(ctx, "session started", "user", user.Username, "remember_me", rememberMe)
}

// EndSession terminates the session. expired distinguishes an involuntary
// end (token loss, inactivity) from an explicit logout for event purposes.
func (m *Manager) EndSession(ctx context.Context, expired bool) {
	m.stopTimers()

	m.mu.Lock()
	user := m.user
	m.user = nil
	m.loginTime = time.Time{}
	m.lastActivity = time.Time{}
	m.rememberMe = false
	m.mu.Unlock()

	m.client.ClearTokens()
	m.removeFile(ctx)

	if user == nil {
		return
	}
	if expired {
		m.logger.Info(ctx, "session expired", "user", user.Username)
		m.notify(Expired, user)
	} else {
		m.logger.Info(ctx, "session ended", "user", user.Username)
		m.notify(Ended, user)
	}
}

// UpdateActivity records user activity, pushing back the inactivity
// deadline. Persisted sessions are rewritten so the timestamp survives a
// crash.
func (m *Manager) UpdateActivity(ctx context.Context) {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return
	}
	m.lastActivity = time.Now()
	remember := m.rememberMe
	m.mu.Unlock()

	if remember {
		if err := m.save(); err != nil {
			m.logger.Warn(ctx, "cannot persist activity timestamp", "error", err.Error())
		}
	}
}

// UpdateTokens persists the session after the token pair has been rotated.
func (m *Manager) UpdateTokens(ctx context.Context) {
	m.mu.Lock()
	remember := m.user != nil && m.rememberMe
	m.mu.Unlock()
	if remember {
		if err := m.save(); err != nil {
			m.logger.Warn(ctx, "cannot persist rotated tokens", "error", err.Error())
		}
	}
}

// RestoreSession attempts to resume a previously persisted session. It
// returns true when a valid session was restored. A session older than
// SessionMaxAge is discarded. A session whose access token no longer
// verifies gets one refresh attempt before being discarded.
func (m *Manager) RestoreSession(ctx context.Context) bool {
	return m.restore(ctx, true)
}

func (m *Manager) restore(ctx context.Context, allowRefresh bool) bool {
	sf, err := m.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn(ctx, "cannot read session file, discarding", "error", err.Error())
			m.removeFile(ctx)
		}
		return false
	}
	if sf.User == nil || !sf.User.IsValid() || sf.AccessToken == "" {
		m.logger.Warn(ctx, "session file incomplete, discarding")
		m.removeFile(ctx)
		return false
	}

	if age := time.Since(sf.LoginTime); age > m.cfg.SessionMaxAge {
		m.logger.Info(ctx, "persisted session too old, discarding", "age", age.String())
		m.removeFile(ctx)
		return false
	}

	m.client.SetTokens(sf.AccessToken, sf.RefreshToken)

	resp := m.client.VerifyToken(ctx, sf.AccessToken)
	if !resp.Success {
		if allowRefresh && sf.RefreshToken != "" {
			m.logger.Info(ctx, "persisted token invalid, refreshing")
			if rr := m.client.RefreshAccessToken(ctx); rr.Success {
				if err := m.saveSnapshot(sf); err != nil {
					m.logger.Warn(ctx, "cannot persist refreshed session", "error", err.Error())
				}
				return m.restore(ctx, false)
			}
		}
		m.logger.Info(ctx, "persisted session invalid, discarding")
		m.client.ClearTokens()
		m.removeFile(ctx)
		return false
	}

	user := sf.User
	if resp.User.IsValid() {
		user = resp.User
	}

	m.mu.Lock()
	m.user = user
	m.loginTime = sf.LoginTime
	m.lastActivity = time.Now()
	m.rememberMe = true
	m.mu.Unlock()

	m.startTimers()
	m.logger.Info(ctx, "session restored", "user", user.Username)
	m.notify(Restored, user)
	return true
}

// save writes the current in-memory session to disk.
func (m *Manager) save() error {
	m.mu.Lock()
	sf := sessionFile{
		User:         m.user,
		AccessToken:  m.client.AccessToken(),
		RefreshToken: m.client.RefreshToken(),
		LoginTime:    m.loginTime,
		LastActivity: m.lastActivity,
		RememberMe:   m.rememberMe,
	}
	m.mu.Unlock()
	return m.writeFile(sf)
}

// saveSnapshot rewrites a loaded session with the client's current token
// pair, used after a refresh during restore when no in-memory session
// exists yet.
func (m *Manager) saveSnapshot(sf sessionFile) error {
	sf.AccessToken = m.client.AccessToken()
	sf.RefreshToken = m.client.RefreshToken()
	return m.writeFile(sf)
}

func (m *Manager) writeFile(sf sessionFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.filePath(), data, 0o600)
}

func (m *Manager) load() (sessionFile, error) {
	var sf sessionFile
	data, err := os.ReadFile(m.filePath())
	if err != nil {
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, err
	}
	return sf, nil
}

func (m *Manager) removeFile(ctx context.Context) {
	if err := os.Remove(m.filePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn(ctx, "cannot remove session file", "error", err.Error())
	}
}

// startTimers launches the periodic token and inactivity checks. Calling
// it with timers already running is a no-op.
func (m *Manager) startTimers() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})

	m.timersWG.Add(2)
	go m.runTicker(m.stopCh, m.cfg.TokenCheckInterval, m.checkToken)
	go m.runTicker(m.stopCh, m.cfg.ActivityCheckInterval, m.checkActivity)
}

func (m *Manager) stopTimers() {
	m.timerMu.Lock()
	stopCh := m.stopCh
	m.stopCh = nil
	m.timerMu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	m.timersWG.Wait()
}

func (m *Manager) runTicker(stopCh chan struct{}, interval time.Duration, fn func(ctx context.Context)) {
	defer m.timersWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			fn(context.Background())
		}
	}
}

// checkToken verifies the access token and refreshes it on failure. When
// both verification and refresh fail the session is expired.
func (m *Manager) checkToken(ctx context.Context) {
	if !m.IsActive() {
		return
	}
	if m.client.VerifyToken(ctx, "").Success {
		return
	}
	m.logger.Info(ctx, "access token no longer valid, refreshing")
	if m.client.RefreshAccessToken(ctx).Success {
		m.UpdateTokens(ctx)
		return
	}
	m.logger.Warn(ctx, "token refresh failed, expiring session")
	go m.EndSession(ctx, true)
}

// checkActivity expires the session after a long idle period.
func (m *Manager) checkActivity(ctx context.Context) {
	m.mu.Lock()
	active := m.user != nil
	idle := time.Since(m.lastActivity)
	m.mu.Unlock()

	if !active || idle <= m.cfg.InactivityThreshold {
		return
	}
	m.logger.Info(ctx, "session idle past threshold, expiring", "idle", idle.String())
	go m.EndSession(ctx, true)
}
