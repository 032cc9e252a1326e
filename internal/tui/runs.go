package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/model"
)

// runsModel lists every recorded deployment run, newest first. Selecting a
// run drills down into its per-node outcomes.
type runsModel struct {
	table table.Model
	runs  []model.RunRecord
	err   error
}

func newRunsModel() *runsModel {
	m := &runsModel{}
	runs, err := db.ListRuns(0)
	if err != nil {
		m.err = err
		return m
	}
	m.runs = runs

	columns := []table.Column{
		{Title: i18n.T("tui.runs.header_id"), Width: 6},
		{Title: i18n.T("tui.runs.header_started"), Width: 20},
		{Title: i18n.T("tui.runs.header_source"), Width: 26},
		{Title: i18n.T("tui.runs.header_target"), Width: 32},
		{Title: i18n.T("tui.runs.header_nodes"), Width: 6},
		{Title: i18n.T("tui.runs.header_status"), Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15), // Placeholder height
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)

	var rows []table.Row
	for _, r := range runs {
		status := specialStyle.Render(i18n.T("tui.runs.status_open"))
		if r.FinishedAt != nil {
			status = successStyle.Render(i18n.T("tui.runs.status_done"))
		}
		source, target := r.Source, r.Target
		if r.Command == "check" {
			source = i18n.T("history.check_run")
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			source,
			target,
			strconv.Itoa(r.NodeCount),
			status,
		})
	}
	t.SetRows(rows)
	m.table = t
	return m
}

func (m *runsModel) Init() tea.Cmd {
	return nil
}

func (m *runsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + footer(3)
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "enter":
			if len(m.table.Rows()) == 0 {
				return m, nil
			}
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.runs) {
				return m, nil
			}
			id := m.runs[idx].ID
			return m, func() tea.Msg { return runSelectedMsg{runID: id} }
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *runsModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading deployment runs: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🚚 "+i18n.T("tui.runs.title")) + "\n\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("tui.runs.empty")))
		b.WriteString("\n" + helpStyle.Render(i18n.T("tui.runs.footer")))
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString("\n" + helpStyle.Render(i18n.T("tui.runs.footer")))
	return b.String()
}
