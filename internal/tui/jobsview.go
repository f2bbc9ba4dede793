package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/listview"
)

// statusCycle is the order the s key steps through the status filter.
var statusCycle = []string{"", "running", "completed", "failed", "cancelled"}

// JobsModel is the filterable, paginated job listing.
type JobsModel struct {
	ctrl *listview.Controller

	snap      listview.Snapshot
	loaded    bool
	cursor    int
	searching bool
	query     string
	width     int
	height    int
}

// NewJobsModel creates the listing view bound to its controller.
func NewJobsModel(ctrl *listview.Controller) JobsModel {
	return JobsModel{ctrl: ctrl}
}

func (m JobsModel) Init() tea.Cmd { return nil }

// Searching reports whether the search input currently owns the keyboard.
func (m JobsModel) Searching() bool { return m.searching }

// Selected returns the job under the cursor.
func (m JobsModel) Selected() (jobs.Job, bool) {
	items := m.snap.Page.Items
	if m.cursor < 0 || m.cursor >= len(items) {
		return jobs.Job{}, false
	}
	return items[m.cursor], true
}

func (m *JobsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m JobsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = msg.snap
		m.loaded = true
		if n := len(m.snap.Page.Items); m.cursor >= n {
			m.cursor = max(0, n-1)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.cursor < len(m.snap.Page.Items)-1 {
				m.cursor++
			}
		case "/":
			m.searching = true
			m.query = m.ctrl.Filter().Search
		case "s":
			m.ctrl.SetStatus(nextInCycle(statusCycle, m.ctrl.Filter().Status))
		case "k":
			m.ctrl.SetKind(nextKind(m.ctrl.Filter().Kind))
		case "right", "n":
			f := m.ctrl.Filter()
			if m.snap.Page.TotalPages == 0 || f.Page < m.snap.Page.TotalPages {
				m.ctrl.SetPage(f.Page + 1)
			}
		case "left", "p":
			m.ctrl.SetPage(m.ctrl.Filter().Page - 1)
		case "r":
			m.ctrl.Refresh()
		case "d":
			if job, ok := m.Selected(); ok {
				return m, m.deleteCmd(job.ID)
			}
		}
	}
	return m, nil
}

// updateSearch feeds keystrokes to the controller; the controller's debounce
// collapses rapid typing into a single fetch.
func (m JobsModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.query = ""
		m.ctrl.SetSearch("")
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyBackspace:
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
			m.ctrl.SetSearch(m.query)
		}
	case tea.KeyRunes, tea.KeySpace:
		m.query += string(msg.Runes)
		m.ctrl.SetSearch(m.query)
	}
	return m, nil
}

func (m JobsModel) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.Delete(context.Background(), id)
		return deleteDoneMsg{id: id, err: err}
	}
}

func (m JobsModel) View() string {
	if !m.loaded {
		return panelStyle.Width(max(20, m.width-2)).Render("Loading jobs...")
	}

	f := m.snap.Filter
	svc, _ := jobs.ServiceFor(f.Kind)
	filterLine := fmt.Sprintf("%s  status:%s  page %d", svc.Label, orAny(f.Status), f.Page)
	if m.snap.Page.TotalPages > 0 {
		filterLine = fmt.Sprintf("%s  status:%s  page %d/%d", svc.Label, orAny(f.Status), f.Page, m.snap.Page.TotalPages)
	}
	if f.Search != "" {
		filterLine += "  search:" + f.Search
	}

	var searchLine string
	if m.searching {
		searchLine = keycapStyle.Render("/") + " " + m.query + "▌"
	}

	var body string
	switch {
	case m.snap.Err != nil:
		body = errStyle.Render("Error: " + m.snap.Err.Error())
	case len(m.snap.Page.Items) == 0:
		body = dimStyle.Render("No jobs match the current filter.")
	default:
		body = m.renderRows()
	}

	sections := []string{
		panelHeaderStyle.Render("Jobs"),
		dimStyle.Render(filterLine),
	}
	if searchLine != "" {
		sections = append(sections, searchLine)
	}
	sections = append(sections,
		dimStyle.Render("ID              Target                          Status         Progress"),
		body,
	)

	return panelStyle.Width(max(20, m.width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m JobsModel) renderRows() string {
	lineLimit := max(5, m.height-10)
	rows := ""
	for i, j := range m.snap.Page.Items {
		if i >= lineLimit {
			break
		}
		progress := ""
		if j.Progress > 0 {
			progress = fmt.Sprintf("%d%%", j.Progress)
		}
		row := lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(16).Foreground(ink).Render(truncate(j.ID, 14)),
			lipgloss.NewStyle().Width(32).Foreground(slate).Render(truncate(j.Target, 30)),
			lipgloss.NewStyle().Width(15).Render(statusBadge(j.Status)),
			dimStyle.Render(progress),
		)
		if i == m.cursor {
			row = selectedRowStyle.Render(row)
		}
		rows += row + "\n"
	}
	return rows
}

func nextInCycle(cycle []string, current string) string {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

func nextKind(current jobs.Kind) jobs.Kind {
	all := jobs.Services()
	for i, s := range all {
		if s.Kind == current {
			return all[(i+1)%len(all)].Kind
		}
	}
	return all[0].Kind
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
