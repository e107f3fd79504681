package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Feed.Schedule != "@every 30s" {
		t.Fatalf("unexpected schedule %q", cfg.Feed.Schedule)
	}
	if cfg.Feed.PerPage != 20 || cfg.Feed.Currency != "usd" {
		t.Fatalf("unexpected feed defaults: %#v", cfg.Feed)
	}
	if cfg.Session.MaxIdle.Std() != time.Hour {
		t.Fatalf("unexpected session max idle %v", cfg.Session.MaxIdle.Std())
	}
}

func TestLoadFromPath_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	content := []byte(`
server:
  addr: ":9090"
  read_timeout: 5s
feed:
  schedule: "@every 1m"
  per_page: 10
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Fatalf("read timeout override not applied: %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Feed.Schedule != "@every 1m" || cfg.Feed.PerPage != 10 {
		t.Fatalf("feed overrides not applied: %#v", cfg.Feed)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging override not applied: %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Feed.Currency != "usd" || cfg.RateLimit.RequestsPerSecond != 20 {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}

func TestLoadFromPath_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("STOREFRONT_ADDR", ":7070")
	t.Setenv("STOREFRONT_FEED_SCHEDULE", "@every 2m")
	t.Setenv("STOREFRONT_SESSION_MAX_IDLE", "30m")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env addr override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Feed.Schedule != "@every 2m" {
		t.Fatalf("env schedule override not applied: %q", cfg.Feed.Schedule)
	}
	if cfg.Session.MaxIdle.Std() != 30*time.Minute {
		t.Fatalf("env duration override not applied: %v", cfg.Session.MaxIdle.Std())
	}
}

func TestLoadFromPath_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDurationDecode(t *testing.T) {
	var d Duration
	if err := d.Decode("45s"); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Std() != 45*time.Second {
		t.Fatalf("unexpected duration %v", d.Std())
	}
	if err := d.Decode("soon"); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
