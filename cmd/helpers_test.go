package cmd

import (
	"reflect"
	"testing"

	"github.com/cybersectk/cstk/internal/config"
)

func TestParseSetFlagsTyping(t *testing.T) {
	got, err := parseSetFlags([]string{
		"target=10.0.0.0/24",
		"ports=[22,80,443]",
		"depth=3",
		"aggressive=true",
		"note=scan before 5pm",
	})
	if err != nil {
		t.Fatalf("parseSetFlags: %v", err)
	}

	want := map[string]any{
		"target":     "10.0.0.0/24",
		"ports":      []any{float64(22), float64(80), float64(443)},
		"depth":      float64(3),
		"aggressive": true,
		"note":       "scan before 5pm",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseSetFlags = %#v, want %#v", got, want)
	}
}

func TestParseSetFlagsRejectsMalformed(t *testing.T) {
	for _, pair := range []string{"noequals", "=value", "  =x"} {
		if _, err := parseSetFlags([]string{pair}); err == nil {
			t.Errorf("parseSetFlags(%q) should fail", pair)
		}
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := &config.Config{}
	if err := setConfigValue(cfg, "backend.url", "http://host:9000"); err != nil {
		t.Fatalf("setConfigValue: %v", err)
	}
	if cfg.Backend.URL != "http://host:9000" {
		t.Errorf("backend.url = %q", cfg.Backend.URL)
	}

	if err := setConfigValue(cfg, "watch.interval_seconds", "5"); err != nil {
		t.Fatalf("setConfigValue: %v", err)
	}
	if cfg.Watch.IntervalSeconds != 5 {
		t.Errorf("interval = %d", cfg.Watch.IntervalSeconds)
	}

	if err := setConfigValue(cfg, "notify.slack.webhook_url", "https://hooks.slack.com/x"); err != nil {
		t.Fatalf("setConfigValue: %v", err)
	}
	if cfg.Notify.Slack.WebhookURL == "" {
		t.Error("nested omitempty field not set")
	}

	if err := setConfigValue(cfg, "nonsense", "x"); err == nil {
		t.Error("expected error for unknown top-level key")
	}
	if err := setConfigValue(cfg, "watch.interval_seconds", "not-a-number"); err == nil {
		t.Error("expected error for type mismatch")
	}
}

func TestParseSetFlagsKeepsEqualsInValue(t *testing.T) {
	got, err := parseSetFlags([]string{"query=a=b"})
	if err != nil {
		t.Fatalf("parseSetFlags: %v", err)
	}
	if got["query"] != "a=b" {
		t.Errorf("value with '=' mangled: %v", got["query"])
	}
}
