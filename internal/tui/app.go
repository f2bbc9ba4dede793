// Package tui is the interactive job monitor: a filterable job listing and a
// detail pane showing live polling progress and result collections.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/config"
	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/listview"
	"github.com/cybersectk/cstk/internal/poll"
	"github.com/cybersectk/cstk/internal/results"
)

// Tab represents a TUI navigation tab.
type Tab int

const (
	TabJobs Tab = iota
	TabDetail
)

var tabNames = []string{"Jobs", "Detail"}

// snapshotMsg carries an applied listing fetch into the event loop.
type snapshotMsg struct{ snap listview.Snapshot }

// deleteDoneMsg reports the outcome of a job deletion.
type deleteDoneMsg struct {
	id  string
	err error
}

// watchID keys tracker subscriptions. Different services can issue the same
// numeric job id, so the kind is part of the key.
func watchID(kind jobs.Kind, id string) string { return string(kind) + ":" + id }

func splitWatchID(wid string) (jobs.Service, string, error) {
	kindStr, id, ok := strings.Cut(wid, ":")
	if !ok {
		return jobs.Service{}, "", fmt.Errorf("malformed watch id %q", wid)
	}
	kind, err := jobs.ParseKind(kindStr)
	if err != nil {
		return jobs.Service{}, "", err
	}
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		return jobs.Service{}, "", err
	}
	return svc, id, nil
}

// App is the root bubbletea model.
type App struct {
	cfg     *config.Config
	jobsAPI *jobs.API
	ctrl    *listview.Controller
	tracker *poll.Tracker

	width     int
	height    int
	activeTab Tab
	jobsView  JobsModel
	detail    DetailModel
	statusMsg string
}

// NewApp creates the TUI application.
func NewApp(cfg *config.Config, client *api.Client) *App {
	jobsAPI := jobs.NewAPI(client)
	tracker := poll.NewTracker(
		func(ctx context.Context, wid string) (jobs.StatusUpdate, error) {
			svc, id, err := splitWatchID(wid)
			if err != nil {
				return jobs.StatusUpdate{}, err
			}
			return jobsAPI.Status(ctx, svc, id)
		},
		poll.Options{
			Interval:    cfg.Watch.Interval(),
			MaxBackoff:  cfg.Watch.MaxBackoff(),
			MaxDuration: cfg.Watch.MaxDuration(),
		},
	)

	a := &App{
		cfg:     cfg,
		jobsAPI: jobsAPI,
		tracker: tracker,
	}
	a.detail = NewDetailModel(results.NewLoader(client), tracker)
	return a
}

// Run starts the bubbletea program. It owns the listing controller's
// lifetime: the controller starts before the first frame and every watch
// subscription is drained on exit.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.tracker.Close()

	p := tea.NewProgram(a, tea.WithAltScreen())

	a.ctrl = listview.NewController(listview.Options{
		Fetch: func(ctx context.Context, f listview.Filter) (api.Page[jobs.Job], error) {
			svc, err := jobs.ServiceFor(f.Kind)
			if err != nil {
				return api.Page[jobs.Job]{}, err
			}
			return a.jobsAPI.List(ctx, svc, jobs.ListQuery{
				Search:   f.Search,
				Status:   f.Status,
				Page:     f.Page,
				PageSize: f.PageSize,
			})
		},
		Delete: func(ctx context.Context, id string) error {
			svc, err := jobs.ServiceFor(a.ctrl.Filter().Kind)
			if err != nil {
				return err
			}
			return a.jobsAPI.Delete(ctx, svc, id)
		},
		OnSnapshot: func(s listview.Snapshot) {
			p.Send(snapshotMsg{snap: s})
		},
		Debounce:     a.cfg.List.Debounce(),
		RefreshEvery: a.cfg.List.Refresh(),
		Initial: listview.Filter{
			Kind:     jobs.KindPortScan,
			PageSize: a.cfg.List.PageSize,
		},
	})
	a.jobsView = NewJobsModel(a.ctrl)
	a.detail.ctx = ctx
	a.ctrl.Start(ctx)

	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentW := max(20, msg.Width-2)
		contentH := max(8, msg.Height-7)
		a.jobsView.SetSize(contentW, contentH)
		a.detail.SetSize(contentW, contentH)

	case tea.KeyMsg:
		// The search input swallows keys; only its own exits apply.
		if a.activeTab == TabJobs && a.jobsView.Searching() {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.activeTab = TabJobs
		case "2":
			a.activeTab = TabDetail
		case "tab":
			a.activeTab = (a.activeTab + 1) % Tab(len(tabNames))
		case "enter":
			if a.activeTab == TabJobs {
				if job, ok := a.jobsView.Selected(); ok {
					a.activeTab = TabDetail
					a.ctrl.ShowDetail(job.ID)
					cmds = append(cmds, a.detail.Open(a.ctrl.Filter().Kind, job))
				}
			}
		}

	case snapshotMsg:
		// Listing snapshots apply even while the detail tab is focused, so
		// returning to the listing never shows stale rows.
		newJobs, cmd := a.jobsView.Update(msg)
		a.jobsView = newJobs.(JobsModel)
		return a, cmd

	case watchMsg, detailLoadedMsg:
		// Watch observations keep flowing while the Jobs tab is focused;
		// dropping one would break the wait-receive chain for good.
		newDetail, cmd := a.detail.Update(msg)
		a.detail = newDetail.(DetailModel)
		return a, cmd

	case deleteDoneMsg:
		if msg.err != nil {
			a.statusMsg = errStyle.Render("delete failed: " + msg.err.Error())
		} else {
			a.statusMsg = okStyle.Render("deleted " + msg.id)
			if a.detail.JobID() == msg.id {
				// The detail pane must not keep rendering a removed job.
				a.detail.Clear()
				a.activeTab = TabJobs
			}
		}
	}

	// Delegate to active view.
	switch a.activeTab {
	case TabJobs:
		newJobs, cmd := a.jobsView.Update(msg)
		a.jobsView = newJobs.(JobsModel)
		cmds = append(cmds, cmd)
	case TabDetail:
		newDetail, cmd := a.detail.Update(msg)
		a.detail = newDetail.(DetailModel)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	nav := a.renderTabs()

	var content string
	switch a.activeTab {
	case TabJobs:
		content = a.jobsView.View()
	case TabDetail:
		content = a.detail.View()
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		MaxHeight(max(1, a.height-4)).
		Render(content)

	status := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slateDim).
		Render("tab switch  / search  s status  k kind  d delete  q quit  " + a.statusMsg)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		nav,
		contentBox,
		status,
	)
}

func (a *App) renderHeader() string {
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("cstk"),
		"  ",
		dimStyle.Render("CyberSec Toolkit Pro job monitor"),
		"  ",
		mutedBadgeStyle.Render(" "+tabNames[a.activeTab]+" "),
	)
	return lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		Width(a.width).
		Padding(0, 1).
		Render(row)
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(tabNames)*2)
	for i, name := range tabNames {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == a.activeTab {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
		if i < len(tabNames)-1 {
			parts = append(parts, dimStyle.Render("  ·  "))
		}
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slate).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, parts...))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
