package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/flagx"
	"github.com/dmitrijs2005/authdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so the file can specify intervals either as strings like
// "30s" or as integer nanoseconds. After parsing, non-zero values are copied
// into the runtime Config.
type JsonConfig struct {
	APIBaseURL            string         `json:"api_base_url"`
	DataDir               string         `json:"data_dir"`
	RequestTimeout        timex.Duration `json:"request_timeout"`
	MaxRetries            *int           `json:"max_retries"`
	RetryBaseDelay        timex.Duration `json:"retry_base_delay"`
	SessionMaxAgeDays     *int           `json:"session_max_age_days"`
	TokenCheckInterval    timex.Duration `json:"token_check_interval"`
	ActivityCheckInterval timex.Duration `json:"activity_check_interval"`
	InactivityThreshold   timex.Duration `json:"inactivity_threshold"`
	AutoRefreshInterval   timex.Duration `json:"auto_refresh_interval"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. If no file was given the function returns without
// touching cfg. Read or unmarshal errors panic; the caller may recover.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	if jc.RetryBaseDelay.Duration != 0 {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.SessionMaxAgeDays != nil {
		cfg.SessionMaxAge = time.Duration(*jc.SessionMaxAgeDays) * 24 * time.Hour
	}
	if jc.TokenCheckInterval.Duration != 0 {
		cfg.TokenCheckInterval = jc.TokenCheckInterval.Duration
	}
	if jc.ActivityCheckInterval.Duration != 0 {
		cfg.ActivityCheckInterval = jc.ActivityCheckInterval.Duration
	}
	if jc.InactivityThreshold.Duration != 0 {
		cfg.InactivityThreshold = jc.InactivityThreshold.Duration
	}
	if jc.AutoRefreshInterval.Duration != 0 {
		cfg.AutoRefreshInterval = jc.AutoRefreshInterval.Duration
	}
}
