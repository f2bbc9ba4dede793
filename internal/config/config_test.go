package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("backend URL = %q, want %q", cfg.Backend.URL, DefaultBackendURL)
	}
	if cfg.Journal.Driver != "sqlite" {
		t.Errorf("journal driver = %q, want sqlite", cfg.Journal.Driver)
	}
	if want := filepath.Join(home, DefaultDBFile); cfg.Journal.Path != want {
		t.Errorf("journal path = %q, want %q", cfg.Journal.Path, want)
	}
	if cfg.Watch.IntervalSeconds != 2 {
		t.Errorf("watch interval = %d, want 2", cfg.Watch.IntervalSeconds)
	}
	if cfg.List.PageSize != 20 {
		t.Errorf("page size = %d, want 20", cfg.List.PageSize)
	}
}

func TestEnvOverridesBackendURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CSTK_BACKEND_URL", "https://csec.internal.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://csec.internal.example.com" {
		t.Errorf("env override ignored, got %q", cfg.Backend.URL)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "custom-config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Backend.URL = "http://backend.lan:9000"
	cfg.Backend.Token = "tok-xyz"
	cfg.Watch.IntervalSeconds = 5
	cfg.Notify.Slack.WebhookURL = "https://hooks.slack.com/services/T/B/x"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Backend.URL != "http://backend.lan:9000" || got.Backend.Token != "tok-xyz" {
		t.Errorf("backend settings lost: %+v", got.Backend)
	}
	if got.Watch.IntervalSeconds != 5 {
		t.Errorf("watch interval lost: %d", got.Watch.IntervalSeconds)
	}
	if got.Notify.Slack.WebhookURL == "" {
		t.Error("notify settings lost")
	}
}

func TestHomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Journal.Path = "~/data/journal.db"
	cfg.Reports.Dir = "~/exports"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if want := filepath.Join(home, "data/journal.db"); got.Journal.Path != want {
		t.Errorf("journal path = %q, want %q", got.Journal.Path, want)
	}
	if want := filepath.Join(home, "exports"); got.Reports.Dir != want {
		t.Errorf("reports dir = %q, want %q", got.Reports.Dir, want)
	}
}

func TestDurationAccessors(t *testing.T) {
	w := WatchConfig{IntervalSeconds: 2, MaxBackoffSeconds: 30, MaxDurationMinutes: 30}
	if w.Interval() != 2*time.Second {
		t.Errorf("Interval = %v", w.Interval())
	}
	if w.MaxBackoff() != 30*time.Second {
		t.Errorf("MaxBackoff = %v", w.MaxBackoff())
	}
	if w.MaxDuration() != 30*time.Minute {
		t.Errorf("MaxDuration = %v", w.MaxDuration())
	}

	l := ListConfig{RefreshSeconds: 30, DebounceMillis: 300}
	if l.Refresh() != 30*time.Second {
		t.Errorf("Refresh = %v", l.Refresh())
	}
	if l.Debounce() != 300*time.Millisecond {
		t.Errorf("Debounce = %v", l.Debounce())
	}
}

func TestConfigPath(t *testing.T) {
	if p, err := ConfigPath("/tmp/override.json"); err != nil || p != "/tmp/override.json" {
		t.Errorf("override not honoured: %q, %v", p, err)
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	p, err := ConfigPath("")
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if want := filepath.Join(home, DefaultConfigDir, DefaultConfigFile); p != want {
		t.Errorf("ConfigPath = %q, want %q", p, want)
	}
}
