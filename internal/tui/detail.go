package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/poll"
	"github.com/cybersectk/cstk/internal/results"
)

// detailLoadedMsg carries the loaded result collections.
type detailLoadedMsg struct {
	id          string
	collections []results.Collection
	err         error
}

// watchMsg is one polling observation; ok is false once the watch has ended.
type watchMsg struct {
	id string
	u  poll.Update
	ok bool
}

// DetailModel shows one job: live polling progress while it runs, then its
// result collections once it completes.
type DetailModel struct {
	loader  *results.Loader
	tracker *poll.Tracker
	ctx     context.Context

	svc         jobs.Service
	job         jobs.Job
	hasJob      bool
	last        poll.Update
	sub         *poll.Subscription
	collections []results.Collection
	loading     bool
	loadErr     error
	width       int
	height      int
}

// NewDetailModel creates the detail pane.
func NewDetailModel(loader *results.Loader, tracker *poll.Tracker) DetailModel {
	return DetailModel{loader: loader, tracker: tracker, ctx: context.Background()}
}

func (d DetailModel) Init() tea.Cmd { return nil }

// JobID returns the id of the displayed job, or "" when the pane is empty.
func (d DetailModel) JobID() string {
	if !d.hasJob {
		return ""
	}
	return d.job.ID
}

// Clear empties the pane and cancels any active watch.
func (d *DetailModel) Clear() {
	if d.sub != nil {
		d.sub.Stop()
		d.sub = nil
	}
	d.hasJob = false
	d.job = jobs.Job{}
	d.last = poll.Update{}
	d.collections = nil
	d.loading = false
	d.loadErr = nil
}

func (d *DetailModel) SetSize(w, h int) {
	d.width = w
	d.height = h
}

// Open points the pane at a job. Terminal successful jobs load their result
// collections immediately; running jobs start a live watch instead.
func (d *DetailModel) Open(kind jobs.Kind, job jobs.Job) tea.Cmd {
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		d.loadErr = err
		return nil
	}

	d.Clear()
	d.svc = svc
	d.job = job
	d.hasJob = true
	d.last = poll.Update{Status: job.ParsedStatus(), Raw: job.Status, Progress: job.Progress}

	status := job.ParsedStatus()
	switch {
	case status.Terminal() && status.Succeeded():
		d.loading = true
		return d.loadCmd()
	case status.Terminal():
		return nil
	default:
		d.sub = d.tracker.Watch(d.ctx, watchID(kind, job.ID))
		return waitCmd(job.ID, d.sub)
	}
}

func (d DetailModel) loadCmd() tea.Cmd {
	svc, id, status := d.svc, d.job.ID, d.last.Status
	ctx, loader := d.ctx, d.loader
	return func() tea.Msg {
		cols, err := loader.Load(ctx, svc, id, status)
		return detailLoadedMsg{id: id, collections: cols, err: err}
	}
}

// waitCmd blocks on the subscription channel and feeds one observation back
// into the event loop; it is re-issued after every delivery.
func waitCmd(id string, sub *poll.Subscription) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-sub.Updates()
		return watchMsg{id: id, u: u, ok: ok}
	}
}

func (d DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case watchMsg:
		if !d.hasJob || msg.id != d.job.ID {
			return d, nil
		}
		if !msg.ok {
			d.sub = nil
			return d, nil
		}
		if msg.u.Err == nil {
			d.last = msg.u
			d.job.Status = msg.u.Raw
			d.job.Progress = msg.u.Progress
		} else {
			d.last.Err = msg.u.Err
		}
		if msg.u.Err == nil && msg.u.Status.Terminal() {
			if msg.u.Status.Succeeded() {
				d.loading = true
				return d, d.loadCmd()
			}
			return d, nil
		}
		return d, waitCmd(msg.id, d.sub)

	case detailLoadedMsg:
		if !d.hasJob || msg.id != d.job.ID {
			return d, nil
		}
		d.loading = false
		d.collections = msg.collections
		d.loadErr = msg.err
		return d, nil
	}
	return d, nil
}

func (d DetailModel) View() string {
	w := max(20, d.width-2)
	if !d.hasJob {
		return panelStyle.Width(w).Render(
			dimStyle.Render("No job selected. Pick one on the Jobs tab and press Enter."),
		)
	}

	header := []string{
		panelHeaderStyle.Render(d.svc.Label + " " + d.job.ID),
	}
	if d.job.Target != "" {
		header = append(header, dimStyle.Render("target: "+d.job.Target))
	}
	statusLine := statusBadge(d.job.Status)
	if d.job.Progress > 0 && !d.last.Status.Terminal() {
		statusLine += dimStyle.Render(fmt.Sprintf("  %d%%", d.job.Progress))
	}
	if d.last.Message != "" {
		statusLine += "  " + dimStyle.Render(d.last.Message)
	}
	header = append(header, statusLine)
	if d.last.Err != nil {
		header = append(header, errStyle.Render("poll error: "+d.last.Err.Error()))
	}

	sections := []string{lipgloss.JoinVertical(lipgloss.Left, header...)}

	switch {
	case d.loading:
		sections = append(sections, dimStyle.Render("Loading results..."))
	case d.loadErr != nil:
		sections = append(sections, errStyle.Render(d.loadErr.Error()))
	default:
		for _, c := range d.collections {
			sections = append(sections, d.renderCollection(c))
		}
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (d DetailModel) renderCollection(c results.Collection) string {
	title := panelHeaderStyle.Render(capitalize(c.Name))
	switch {
	case c.Err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, errStyle.Render(c.Err.Error()))
	case !c.Loaded:
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Loading..."))
	case c.Empty():
		// Loaded-but-empty is an explicit answer, not a blank pane.
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No "+c.Name+" found."))
	}

	limit := 8
	rows := make([]string, 0, limit+1)
	rows = append(rows, title)
	for i, rec := range c.Records {
		if i >= limit {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("… and %d more", len(c.Records)-limit)))
			break
		}
		rows = append(rows, "  "+truncate(recordLine(rec), max(30, d.width-8)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// recordLine flattens a schemaless record into "key=value" pairs with stable
// key order.
func recordLine(rec results.Record) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, rec[k]))
	}
	return strings.Join(parts, "  ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
