// Package listview coordinates the paginated, filterable job listing.
//
// The controller owns the filter state exclusively. Two rules keep the view
// coherent under concurrent refreshes:
//
//   - any non-pagination filter change resets the page index to 1 before the
//     next fetch, so a narrowed result set is never asked for an
//     out-of-range page;
//   - every fetch carries a monotonically increasing token and responses
//     that arrive out of order are dropped, so a slow stale auto-refresh can
//     never overwrite data from a newer fetch.
package listview

import (
	"context"
	"sync"
	"time"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/jobs"
)

// Filter is the full query state driving the listing.
type Filter struct {
	Kind     jobs.Kind
	Search   string
	Status   string
	Page     int
	PageSize int
}

// Snapshot is the displayed state after a fetch has been applied.
type Snapshot struct {
	Filter Filter
	Page   api.Page[jobs.Job]
	Err    error
}

// FetchFunc loads one page of jobs for the filter.
type FetchFunc func(ctx context.Context, f Filter) (api.Page[jobs.Job], error)

// DeleteFunc removes one job on the backend.
type DeleteFunc func(ctx context.Context, id string) error

// Options configure a Controller.
type Options struct {
	Fetch  FetchFunc
	Delete DeleteFunc
	// OnSnapshot is invoked whenever a fetch result is applied. Called
	// without internal locks held.
	OnSnapshot func(Snapshot)
	// Debounce delays the fetch after search input until typing settles.
	Debounce time.Duration
	// RefreshEvery drives the background auto-refresh; zero disables it.
	RefreshEvery time.Duration
	// Initial is the starting filter state.
	Initial Filter
}

// Controller owns the filter state and serialises fetch results.
type Controller struct {
	fetch      FetchFunc
	del        DeleteFunc
	onSnapshot func(Snapshot)
	debounce   time.Duration
	refresh    time.Duration

	mu          sync.Mutex
	ctx         context.Context
	filter      Filter
	snap        Snapshot
	detailID    string
	lastIssued  uint64
	lastApplied uint64
	searchTimer *time.Timer
}

// NewController builds a Controller; call Start before using it.
func NewController(opts Options) *Controller {
	f := opts.Initial
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	return &Controller{
		fetch:      opts.Fetch,
		del:        opts.Delete,
		onSnapshot: opts.OnSnapshot,
		debounce:   opts.Debounce,
		refresh:    opts.RefreshEvery,
		filter:     f,
	}
}

// Start issues the initial fetch and begins auto-refresh. The controller
// lives until ctx is cancelled; late responses after that are ignored by
// their callers' context errors.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.dispatch()

	if c.refresh > 0 {
		go func() {
			ticker := time.NewTicker(c.refresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.dispatch()
				}
			}
		}()
	}
}

// Filter returns the current filter state.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Snapshot returns the last applied fetch result.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SetSearch updates the free-text filter. The page resets to 1 and the
// fetch is debounced: rapid keystrokes collapse into one request after the
// input settles.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	if c.filter.Search == q {
		c.mu.Unlock()
		return
	}
	c.filter.Search = q
	c.filter.Page = 1
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	if c.debounce <= 0 {
		c.mu.Unlock()
		c.dispatch()
		return
	}
	c.searchTimer = time.AfterFunc(c.debounce, c.dispatch)
	c.mu.Unlock()
}

// SetStatus updates the status filter; resets to page 1 and fetches.
func (c *Controller) SetStatus(status string) {
	c.mu.Lock()
	if c.filter.Status == status {
		c.mu.Unlock()
		return
	}
	c.filter.Status = status
	c.filter.Page = 1
	c.mu.Unlock()
	c.dispatch()
}

// SetKind switches the backing service; resets to page 1 and fetches.
func (c *Controller) SetKind(kind jobs.Kind) {
	c.mu.Lock()
	if c.filter.Kind == kind {
		c.mu.Unlock()
		return
	}
	c.filter.Kind = kind
	c.filter.Page = 1
	c.mu.Unlock()
	c.dispatch()
}

// SetPage moves to another page of the current result set.
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	if c.filter.Page == page {
		c.mu.Unlock()
		return
	}
	c.filter.Page = page
	c.mu.Unlock()
	c.dispatch()
}

// SetPageSize changes the page size; the page resets to 1 since the old
// index no longer addresses the same rows.
func (c *Controller) SetPageSize(size int) {
	if size < 1 {
		return
	}
	c.mu.Lock()
	if c.filter.PageSize == size {
		c.mu.Unlock()
		return
	}
	c.filter.PageSize = size
	c.filter.Page = 1
	c.mu.Unlock()
	c.dispatch()
}

// Refresh issues a fetch with the current filter. Manual refreshes and the
// auto-refresh ticker share this path, so token ordering applies to both.
func (c *Controller) Refresh() { c.dispatch() }

// ShowDetail records which job the detail pane is displaying.
func (c *Controller) ShowDetail(id string) {
	c.mu.Lock()
	c.detailID = id
	c.mu.Unlock()
}

// DetailID returns the job currently displayed in the detail pane, if any.
func (c *Controller) DetailID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detailID
}

// Delete removes a job and unconditionally refreshes the listing. If the
// deleted job is the one shown in the detail pane, the pane reference is
// cleared so the view cannot keep rendering a removed job.
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.del(ctx, id)
	if err == nil {
		c.mu.Lock()
		if c.detailID == id {
			c.detailID = ""
		}
		c.mu.Unlock()
	}
	c.Refresh()
	return err
}

// dispatch issues one tokenised fetch with the current filter.
func (c *Controller) dispatch() {
	c.mu.Lock()
	ctx := c.ctx
	if ctx == nil {
		c.mu.Unlock()
		return
	}
	f := c.filter
	c.lastIssued++
	token := c.lastIssued
	c.mu.Unlock()

	go func() {
		page, err := c.fetch(ctx, f)
		if ctx.Err() != nil {
			return
		}
		c.apply(token, f, page, err)
	}()
}

// apply installs a fetch result unless a newer one already landed.
func (c *Controller) apply(token uint64, f Filter, page api.Page[jobs.Job], err error) {
	c.mu.Lock()
	if token <= c.lastApplied {
		c.mu.Unlock()
		return
	}
	c.lastApplied = token
	c.snap = Snapshot{Filter: f, Page: page, Err: err}
	snap := c.snap
	cb := c.onSnapshot
	c.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}
