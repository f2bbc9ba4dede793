package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.New(config.BackendConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return client
}

func mustService(t *testing.T, kind Kind) Service {
	t.Helper()
	svc, err := ServiceFor(kind)
	if err != nil {
		t.Fatalf("ServiceFor(%s): %v", kind, err)
	}
	return svc
}

func TestSubmitValidationShortCircuits(t *testing.T) {
	var requests atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"scan_id":"s1"}`))
	}))

	a := NewAPI(client)
	svc := mustService(t, KindPortScan)

	_, err := a.Submit(context.Background(), svc, map[string]any{"scan_type": "full"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "target" {
		t.Errorf("expected missing field target, got %v", verr.Fields)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("invalid submission must not reach the network, saw %d requests", n)
	}
}

func TestSubmitBlankRequiredField(t *testing.T) {
	svc := mustService(t, KindPhishingCampaign)
	err := svc.ValidateConfig(map[string]any{"template": "  ", "target_domain": "example.com"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank template, got %v", err)
	}
}

func TestSubmitReturnsServerID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/network/scans" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"scan_id":"scan-7","status":"submitted"}`))
	}))

	id, err := NewAPI(client).Submit(context.Background(), mustService(t, KindPortScan),
		map[string]any{"target": "10.0.0.5"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "scan-7" {
		t.Errorf("expected scan-7, got %q", id)
	}
}

func TestSubmitNumericID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audit_id":42}`))
	}))

	id, err := NewAPI(client).Submit(context.Background(), mustService(t, KindContractAudit),
		map[string]any{"contract_address": "0xdeadbeef"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "42" {
		t.Errorf("expected 42, got %q", id)
	}
}

func TestSubmitMissingIDField(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"submitted"}`))
	}))

	_, err := NewAPI(client).Submit(context.Background(), mustService(t, KindPortScan),
		map[string]any{"target": "10.0.0.5"})
	if err == nil {
		t.Fatal("expected error when response lacks the id field")
	}
}

func TestListFillsDefaults(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "running" || q.Get("page") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"items":null,"page":2,"page_size":20,"total":0,"total_pages":0}`))
	}))

	page, err := NewAPI(client).List(context.Background(), mustService(t, KindPortScan),
		ListQuery{Status: "running", Page: 2, PageSize: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Items == nil {
		t.Error("Items must never be nil")
	}
}

func TestListBackfillsKind(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"j1","status":"running"}],"page":1,"total":1,"total_pages":1}`))
	}))

	page, err := NewAPI(client).List(context.Background(), mustService(t, KindVulnerabilityScan), ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Items[0].Kind != "vulnerability_scan" {
		t.Errorf("expected kind backfill, got %q", page.Items[0].Kind)
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("  Port_Scan "); err != nil {
		t.Errorf("ParseKind should normalise case and whitespace: %v", err)
	}
	if _, err := ParseKind("crystal_ball"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStatusStateMachine(t *testing.T) {
	cases := []struct {
		raw        string
		terminal   bool
		successful bool
	}{
		{"completed", true, true},
		{"failed", true, false},
		{"cancelled", true, false},
		{"running", false, false},
		{"queued", false, false},
		{"finalizing", false, false}, // unknown buckets as in-progress
		{"COMPLETED", true, true},
	}
	for _, tc := range cases {
		s := ParseStatus(tc.raw)
		if s.Terminal() != tc.terminal {
			t.Errorf("ParseStatus(%q).Terminal() = %v, want %v", tc.raw, s.Terminal(), tc.terminal)
		}
		if s.Succeeded() != tc.successful {
			t.Errorf("ParseStatus(%q).Succeeded() = %v, want %v", tc.raw, s.Succeeded(), tc.successful)
		}
	}
}
