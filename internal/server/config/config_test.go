package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("want default addr :8000, got %q", cfg.Addr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("want default access TTL 15m, got %v", cfg.AccessTokenTTL)
	}
	if cfg.ResetTokenTTL != time.Hour {
		t.Errorf("want default reset TTL 1h, got %v", cfg.ResetTokenTTL)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("AUTHDESK_ADDR", ":9999")
	t.Setenv("AUTHDESK_ACCESS_TOKEN_TTL", "5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("want :9999, got %q", cfg.Addr)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("want 5m, got %v", cfg.AccessTokenTTL)
	}
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "addr: \":7070\"\nsecret_key: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTHDESK_CONFIG", path)
	t.Setenv("AUTHDESK_SECRET_KEY", "from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("want file value :7070, got %q", cfg.Addr)
	}
	if cfg.SecretKey != "from-env" {
		t.Errorf("env must win over the file, got %q", cfg.SecretKey)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("AUTHDESK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
