// Package reports turns report generation into an explicit async action
// with observable state, replacing the fire-and-forget link-opening the
// product's web dashboard used (which gave the user no success or failure
// feedback at all).
package reports

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/jobs"
)

// State is the lifecycle of one export action.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Formats the backend can render.
var Formats = []string{"json", "pdf"}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Action is one report export with its own status. A fresh Action starts
// idle; Run moves it through requesting to ready or error.
type Action struct {
	client *api.Client
	dir    string

	mu    sync.Mutex
	state State
	path  string
	err   error
}

// NewAction builds an export action writing into dir.
func NewAction(client *api.Client, dir string) *Action {
	return &Action{client: client, dir: dir, state: StateIdle}
}

// State returns the current lifecycle state.
func (a *Action) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Path returns the written file path once the action is ready.
func (a *Action) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// Err returns the failure once the action is in the error state.
func (a *Action) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Run requests the report for a job and writes it to a local file named
// after the job id and format. It returns the written path.
func (a *Action) Run(ctx context.Context, svc jobs.Service, jobID, format string) (string, error) {
	if !ValidFormat(format) {
		return "", a.fail(fmt.Errorf("unsupported report format %q (valid: %s)", format, strings.Join(Formats, ", ")))
	}

	a.mu.Lock()
	a.state = StateRequesting
	a.err = nil
	a.path = ""
	a.mu.Unlock()

	query := url.Values{}
	query.Set("job_id", jobID)
	query.Set("format", format)

	data, _, err := a.client.GetRaw(ctx, svc.ReportsPath(), query)
	if err != nil {
		return "", a.fail(fmt.Errorf("requesting %s report for %s: %w", format, jobID, err))
	}

	if err := os.MkdirAll(a.dir, 0o700); err != nil {
		return "", a.fail(fmt.Errorf("creating reports directory: %w", err))
	}
	name := fmt.Sprintf("%s-%s.%s", svc.Kind, jobID, format)
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", a.fail(fmt.Errorf("writing report %s: %w", path, err))
	}

	a.mu.Lock()
	a.state = StateReady
	a.path = path
	a.mu.Unlock()
	return path, nil
}

func (a *Action) fail(err error) error {
	a.mu.Lock()
	a.state = StateError
	a.err = err
	a.mu.Unlock()
	return err
}
