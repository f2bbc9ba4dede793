// Package results loads the detail collections of a finished job.
//
// Collections are only fetched for jobs observed in a terminal, successful
// state; each collection loads independently so one failing sub-resource
// never blanks out the others.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/jobs"
)

// ErrNotTerminal rejects a detail load for a job that is still in progress.
var ErrNotTerminal = errors.New("job is not in a terminal state")

// ErrJobFailed rejects a detail load for a job that terminated unsuccessfully.
var ErrJobFailed = errors.New("job failed; no detail collections to load")

// Record is one row of a detail collection. Shapes are service-specific and
// rendered generically, so rows stay schemaless.
type Record map[string]any

// Collection is the outcome of loading one detail sub-resource.
type Collection struct {
	Name    string
	Records []Record
	Err     error
	Loaded  bool
}

// Empty reports a successful load that returned no records. Callers render
// this as an explicit "no results" state, distinct from still-loading.
func (c Collection) Empty() bool {
	return c.Loaded && c.Err == nil && len(c.Records) == 0
}

// Loader fetches detail collections through the shared API client.
type Loader struct {
	client *api.Client
}

// NewLoader builds a Loader.
func NewLoader(client *api.Client) *Loader { return &Loader{client: client} }

// Load fetches every detail collection of the service for the given job,
// concurrently and in isolation. The returned slice always has one entry per
// collection, ordered by collection name; entries carry their own error
// state instead of failing the whole load.
func (l *Loader) Load(ctx context.Context, svc jobs.Service, id string, status jobs.Status) ([]Collection, error) {
	if !status.Terminal() {
		return nil, ErrNotTerminal
	}
	if !status.Succeeded() {
		return nil, ErrJobFailed
	}

	out := make([]Collection, len(svc.Collections))
	var wg sync.WaitGroup
	for i, name := range svc.Collections {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			out[i] = l.loadOne(ctx, svc, id, name)
		}(i, name)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// loadOne fetches a single collection. The response envelope keys the record
// array by the collection name: {"vulnerabilities": [...]}.
func (l *Loader) loadOne(ctx context.Context, svc jobs.Service, id, name string) Collection {
	var envelope map[string][]Record
	if err := l.client.Get(ctx, svc.CollectionPath(id, name), nil, &envelope); err != nil {
		return Collection{Name: name, Err: fmt.Errorf("loading %s: %w", name, err)}
	}
	records := envelope[name]
	if records == nil {
		records = []Record{}
	}
	return Collection{Name: name, Records: records, Loaded: true}
}
