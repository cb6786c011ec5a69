package config

import "time"

// Config holds runtime settings for the authdesk client.
//
// Fields:
//   - APIBaseURL: base URL of the backend auth HTTP API.
//   - DataDir: directory for client-side state (the session file lives here).
//   - RequestTimeout: per-HTTP-call timeout enforced by the transport.
//   - MaxRetries / RetryBaseDelay: retry policy for network-class failures;
//     the delay grows linearly (base × attempt number).
//   - SessionMaxAge: a persisted session older than this is discarded on
//     restore (the auth.session_max_age knob, default 30 days).
//   - TokenCheckInterval: cadence of the reactive token-expiry check.
//   - ActivityCheckInterval: cadence of the session-activity check.
//   - InactivityThreshold: idle time after which the session expires.
//   - AutoRefreshInterval: cadence of the orchestrator's eager token refresh.
type Config struct {
	APIBaseURL            string
	DataDir               string
	RequestTimeout        time.Duration
	MaxRetries            int
	RetryBaseDelay        time.Duration
	SessionMaxAge         time.Duration
	TokenCheckInterval    time.Duration
	ActivityCheckInterval time.Duration
	InactivityThreshold   time.Duration
	AutoRefreshInterval   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000"
	c.DataDir = "data"
	c.RequestTimeout = 30 * time.Second
	c.MaxRetries = 3
	c.RetryBaseDelay = 1 * time.Second
	c.SessionMaxAge = 30 * 24 * time.Hour
	c.TokenCheckInterval = 5 * time.Minute
	c.ActivityCheckInterval = 60 * time.Minute
	c.InactivityThreshold = 2 * time.Hour
	c.AutoRefreshInterval = 25 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
