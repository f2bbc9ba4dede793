package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybersectk/cstk/internal/config"
)

func TestDispatcherDefaultEventFilter(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding webhook payload: %v", err)
		}
		got = append(got, payload["type"].(string))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{
		Webhook: config.WebhookNotifyConfig{URL: srv.URL},
	})
	if !d.IsAnyConfigured() {
		t.Fatal("expected webhook channel to be configured")
	}

	ctx := context.Background()
	d.Notify(ctx, Event{Type: "job.completed", Title: "done", JobID: "j1"})
	d.Notify(ctx, Event{Type: "job.cancelled", Title: "cancelled", JobID: "j2"})
	d.Notify(ctx, Event{Type: "job.failed", Title: "failed", JobID: "j3"})

	// job.cancelled is not in the default event set.
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %v", len(got), got)
	}
	if got[0] != "job.completed" || got[1] != "job.failed" {
		t.Errorf("unexpected delivered events: %v", got)
	}
}

func TestDispatcherExplicitEvents(t *testing.T) {
	var count int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{
		Events:  []string{"job.cancelled"},
		Webhook: config.WebhookNotifyConfig{URL: srv.URL},
	})

	ctx := context.Background()
	d.Notify(ctx, Event{Type: "job.completed"})
	d.Notify(ctx, Event{Type: "job.cancelled"})

	if count != 1 {
		t.Errorf("expected only job.cancelled to be delivered, got %d deliveries", count)
	}
}

func TestWebhookSignature(t *testing.T) {
	const secret = "s3cret"

	var body []byte
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading body: %v", err)
		}
		sig = r.Header.Get("X-Cstk-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL, Secret: secret})
	if err := ch.Send(context.Background(), Event{Type: "job.failed", Title: "boom", JobID: "j9", Kind: "port_scan"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if sig != want {
		t.Errorf("signature mismatch: got %q want %q", sig, want)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["job_id"] != "j9" || payload["kind"] != "port_scan" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL})
	if err := ch.Send(context.Background(), Event{Type: "job.completed"}); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestUnconfiguredChannelsSkipped(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{})
	if d.IsAnyConfigured() {
		t.Error("expected no channels configured")
	}
	// Must not panic with zero channels.
	d.Notify(context.Background(), Event{Type: "job.completed"})
}
