package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/model"
)

// actionLogModel browses the operator action log.
type actionLogModel struct {
	table       table.Model
	allEntries  []model.ActionEntry // Master list of all log entries
	filter      string
	filterCol   int // 0=all, 1=timestamp, 2=user, 3=action, 4=details
	isFiltering bool
	err         error
}

func newActionLogModel() *actionLogModel {
	m := &actionLogModel{}
	entries, err := db.ActionLog()
	if err != nil {
		m.err = err
		return m
	}
	m.allEntries = entries

	columns := []table.Column{
		{Title: i18n.T("tui.actions.header_time"), Width: 20},
		{Title: i18n.T("tui.actions.header_user"), Width: 15},
		{Title: i18n.T("tui.actions.header_action"), Width: 16},
		{Title: i18n.T("tui.actions.header_details"), Width: 60},
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

	m.table = t
	m.rebuildTableRows()
	return m
}

// rebuildTableRows filters the master list of entries and populates the table.
func (m *actionLogModel) rebuildTableRows() {
	var rows []table.Row
	lowerFilter := strings.ToLower(m.filter)

	for _, entry := range m.allEntries {
		match := false
		switch m.filterCol {
		case 0: // all
			match = strings.Contains(strings.ToLower(entry.Timestamp), lowerFilter) ||
				strings.Contains(strings.ToLower(entry.Username), lowerFilter) ||
				strings.Contains(strings.ToLower(entry.Action), lowerFilter) ||
				strings.Contains(strings.ToLower(entry.Details), lowerFilter)
		case 1:
			match = strings.Contains(strings.ToLower(entry.Timestamp), lowerFilter)
		case 2:
			match = strings.Contains(strings.ToLower(entry.Username), lowerFilter)
		case 3:
			match = strings.Contains(strings.ToLower(entry.Action), lowerFilter)
		case 4:
			match = strings.Contains(strings.ToLower(entry.Details), lowerFilter)
		}
		if m.filter != "" && !match {
			continue
		}

		ts := entry.Timestamp
		if len(ts) > 19 {
			ts = ts[:19] // Truncate fractional seconds for cleaner display
		}

		// Color-code by verb; the table's Selected style overrides on the
		// highlighted row.
		actionCell := entry.Action
		switch {
		case strings.HasPrefix(entry.Action, "PUSH"),
			strings.HasPrefix(entry.Action, "EXPORT"):
			actionCell = successStyle.Render(entry.Action)
		case strings.HasPrefix(entry.Action, "MAINTAIN"),
			strings.HasPrefix(entry.Action, "INIT"):
			actionCell = specialStyle.Render(entry.Action)
		case strings.HasPrefix(entry.Action, "CHECK"):
			actionCell = helpStyle.Render(entry.Action)
		}

		rows = append(rows, table.Row{ts, entry.Username, actionCell, entry.Details})
	}
	m.table.SetRows(rows)

	// Go to the top of the table after filtering
	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m *actionLogModel) Init() tea.Cmd {
	return nil
}

func (m *actionLogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + filter/help(3)
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		// If filtering, handle input.
		if m.isFiltering {
			switch msg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuildTableRows()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.rebuildTableRows()
				}
			case tea.KeyRunes:
				m.filter += string(msg.Runes)
				m.rebuildTableRows()
			case tea.KeyTab:
				m.filterCol = (m.filterCol + 1) % 5
				m.rebuildTableRows()
			case tea.KeyShiftTab:
				m.filterCol = (m.filterCol + 4) % 5
				m.rebuildTableRows()
			}
			return m, nil
		}

		// Not filtering, handle commands.
		switch msg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return m, nil
		case "q", "esc":
			if m.filter != "" {
				m.filter = ""
				m.isFiltering = false
				m.rebuildTableRows()
				return m, nil
			}
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *actionLogModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading action log: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("📜 "+i18n.T("tui.actions.title")) + "\n\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("tui.actions.empty")))
		b.WriteString(m.footerView())
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString(m.footerView())
	return b.String()
}

func (m *actionLogModel) footerView() string {
	colNames := []string{
		i18n.T("tui.filter.col_all"),
		i18n.T("tui.actions.header_time"),
		i18n.T("tui.actions.header_user"),
		i18n.T("tui.actions.header_action"),
		i18n.T("tui.actions.header_details"),
	}
	var filterStatus string
	if m.isFiltering {
		filterStatus = i18n.T("tui.filter.editing", colNames[m.filterCol], m.filter)
	} else if m.filter != "" {
		filterStatus = i18n.T("tui.filter.active", colNames[m.filterCol], m.filter)
	} else {
		filterStatus = i18n.T("tui.filter.hint")
	}
	return helpStyle.Render(fmt.Sprintf("\n%s %s", i18n.T("tui.actions.footer"), filterStatus))
}
