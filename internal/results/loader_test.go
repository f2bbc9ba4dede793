package results

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/config"
	"github.com/cybersectk/cstk/internal/jobs"
)

func testLoader(t *testing.T, handler http.Handler) *Loader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.New(config.BackendConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return NewLoader(client)
}

func portScan(t *testing.T) jobs.Service {
	t.Helper()
	svc, err := jobs.ServiceFor(jobs.KindPortScan)
	if err != nil {
		t.Fatalf("ServiceFor: %v", err)
	}
	return svc
}

func TestLoadRejectsInProgressJob(t *testing.T) {
	l := testLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request should be made for a non-terminal job, got %s", r.URL.Path)
	}))

	_, err := l.Load(context.Background(), portScan(t), "j1", jobs.ParseStatus("running"))
	if !errors.Is(err, ErrNotTerminal) {
		t.Errorf("expected ErrNotTerminal, got %v", err)
	}
}

func TestLoadRejectsFailedJob(t *testing.T) {
	l := testLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request should be made for a failed job, got %s", r.URL.Path)
	}))

	_, err := l.Load(context.Background(), portScan(t), "j1", jobs.ParseStatus("failed"))
	if !errors.Is(err, ErrJobFailed) {
		t.Errorf("expected ErrJobFailed, got %v", err)
	}
}

func TestLoadCollectionsIndependently(t *testing.T) {
	// devices succeeds, vulnerabilities 404s. The failing collection must
	// carry its own error without blanking the other.
	l := testLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/network/j1/devices":
			w.Write([]byte(`{"devices":[{"ip":"10.0.0.5","hostname":"db01"}]}`))
		case "/api/network/j1/vulnerabilities":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"collection unavailable"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	cols, err := l.Load(context.Background(), portScan(t), "j1", jobs.ParseStatus("completed"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected one entry per collection, got %d", len(cols))
	}

	// Sorted by name: devices, vulnerabilities.
	devices, vulns := cols[0], cols[1]
	if devices.Name != "devices" || vulns.Name != "vulnerabilities" {
		t.Fatalf("unexpected order: %s, %s", devices.Name, vulns.Name)
	}
	if !devices.Loaded || devices.Err != nil || len(devices.Records) != 1 {
		t.Errorf("devices should have loaded: %+v", devices)
	}
	if devices.Records[0]["ip"] != "10.0.0.5" {
		t.Errorf("device record = %v", devices.Records[0])
	}
	if vulns.Err == nil || vulns.Loaded {
		t.Errorf("vulnerabilities should carry its load error: %+v", vulns)
	}
}

func TestLoadedEmptyIsExplicit(t *testing.T) {
	l := testLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"devices":[],"vulnerabilities":null}`))
	}))

	cols, err := l.Load(context.Background(), portScan(t), "j1", jobs.ParseStatus("completed"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, c := range cols {
		if !c.Empty() {
			t.Errorf("%s should report loaded-but-empty: %+v", c.Name, c)
		}
		if c.Records == nil {
			t.Errorf("%s Records must be non-nil after a successful load", c.Name)
		}
	}
}

func TestEmptyDistinctFromUnloaded(t *testing.T) {
	unloaded := Collection{Name: "findings"}
	if unloaded.Empty() {
		t.Error("a collection that never loaded is not empty, it is pending")
	}
	failed := Collection{Name: "findings", Err: errors.New("boom")}
	if failed.Empty() {
		t.Error("a failed collection is not empty")
	}
}
