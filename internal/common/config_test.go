package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Ledger.Path != "data/ledger" {
		t.Errorf("default ledger path = %q", cfg.Storage.Ledger.Path)
	}
	if cfg.IsProduction() {
		t.Error("default config should not be production")
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "config.toml", `
environment = "production"

[server]
port = 9090

[clients.kite]
api_key = "key-from-file"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Clients.Kite.APIKey != "key-from-file" {
		t.Errorf("api key = %q", cfg.Clients.Kite.APIKey)
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	// Untouched values keep their defaults.
	if cfg.Clients.Kite.BaseURL != "https://api.kite.trade" {
		t.Errorf("base url = %q", cfg.Clients.Kite.BaseURL)
	}
}

func TestLoadConfigLaterFileWins(t *testing.T) {
	base := writeConfigFile(t, "base.toml", "[server]\nport = 9001\n")
	override := writeConfigFile(t, "override.toml", "[server]\nport = 9002\n")

	cfg, err := LoadConfig(base, override)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9002 {
		t.Errorf("port = %d, want 9002", cfg.Server.Port)
	}
}

func TestLoadConfigSkipsMissingFiles(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.toml", "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "bad.toml", "this is not toml [[[")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLEND_ENV", "prod")
	t.Setenv("BLEND_PORT", "7070")
	t.Setenv("BLEND_DATA_PATH", "/var/blend")
	t.Setenv("KITE_API_KEY", "env-key")
	t.Setenv("BLEND_CAPTURE_SECRET", "env-capture")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("BLEND_ENV=prod should mean production")
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Storage.Internal.Path != "/var/blend/internal" {
		t.Errorf("internal path = %q", cfg.Storage.Internal.Path)
	}
	if cfg.Cache.Path != "/var/blend/cache" {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
	if cfg.Clients.Kite.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Clients.Kite.APIKey)
	}
	if cfg.Snapshot.CaptureSecret != "env-capture" {
		t.Errorf("capture secret = %q", cfg.Snapshot.CaptureSecret)
	}
}

func TestDurationFallbacks(t *testing.T) {
	kc := KiteConfig{Timeout: "bogus"}
	if got := kc.GetTimeout(); got != 30*time.Second {
		t.Errorf("kite timeout fallback = %v", got)
	}
	kc.Timeout = "5s"
	if got := kc.GetTimeout(); got != 5*time.Second {
		t.Errorf("kite timeout = %v", got)
	}

	ac := AuthConfig{StateTokenExpiry: ""}
	if got := ac.GetStateTokenExpiry(); got != 10*time.Minute {
		t.Errorf("state token expiry fallback = %v", got)
	}
}
