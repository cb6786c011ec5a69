// Package config loads runtime configuration for the authdesk client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth API
//	-d string   client data directory (session file location)
//	-t int      HTTP request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://auth.example.com",
//	  "data_dir": "data",
//	  "request_timeout": "30s",
//	  "max_retries": 3,
//	  "retry_base_delay": "1s",
//	  "session_max_age_days": 30,
//	  "token_check_interval": "5m",
//	  "activity_check_interval": "1h",
//	  "inactivity_threshold": "2h",
//	  "auto_refresh_interval": "25m"
//	}
//
// Primary API
//
//   - type Config                     — runtime settings for the client
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
