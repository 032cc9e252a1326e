package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/model"
)

// outcomesModel shows every per-node outcome of one deployment run.
type outcomesModel struct {
	table       table.Model
	run         *model.RunRecord
	all         []model.NodeOutcome // Master list of the run's outcomes
	visible     []model.NodeOutcome // Outcomes matching the active filter
	filter      string
	filterCol   int // 0=all, 1=node, 2=phase, 3=status, 4=detail
	isFiltering bool
	statusMsg   string
	err         error
}

func newOutcomesModel(runID int64) *outcomesModel {
	m := &outcomesModel{}
	run, err := db.GetRun(runID)
	if err != nil {
		m.err = err
		return m
	}
	m.run = run
	outcomes, err := db.OutcomesForRun(runID)
	if err != nil {
		m.err = err
		return m
	}
	m.all = outcomes

	columns := []table.Column{
		{Title: i18n.T("tui.outcomes.header_seq"), Width: 4},
		{Title: i18n.T("tui.outcomes.header_node"), Width: 22},
		{Title: i18n.T("tui.outcomes.header_phase"), Width: 10},
		{Title: i18n.T("tui.outcomes.header_status"), Width: 10},
		{Title: i18n.T("tui.outcomes.header_exit"), Width: 5},
		{Title: i18n.T("tui.outcomes.header_detail"), Width: 44},
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

// rebuildTableRows filters the master list of outcomes and populates the table.
func (m *outcomesModel) rebuildTableRows() {
	var rows []table.Row
	m.visible = m.visible[:0]
	lowerFilter := strings.ToLower(m.filter)

	for _, o := range m.all {
		match := false
		switch m.filterCol {
		case 0: // all
			match = strings.Contains(strings.ToLower(o.Node), lowerFilter) ||
				strings.Contains(strings.ToLower(string(o.Phase)), lowerFilter) ||
				strings.Contains(strings.ToLower(string(o.Status)), lowerFilter) ||
				strings.Contains(strings.ToLower(o.Detail), lowerFilter)
		case 1:
			match = strings.Contains(strings.ToLower(o.Node), lowerFilter)
		case 2:
			match = strings.Contains(strings.ToLower(string(o.Phase)), lowerFilter)
		case 3:
			match = strings.Contains(strings.ToLower(string(o.Status)), lowerFilter)
		case 4:
			match = strings.Contains(strings.ToLower(o.Detail), lowerFilter)
		}
		if m.filter != "" && !match {
			continue
		}

		statusCell := successStyle.Render(string(o.Status))
		if o.Failed() {
			statusCell = errorStyle.Render(string(o.Status))
		}

		rows = append(rows, table.Row{
			strconv.Itoa(o.Seq),
			o.Node,
			string(o.Phase),
			statusCell,
			strconv.Itoa(o.ExitCode),
			o.Detail,
		})
		m.visible = append(m.visible, o)
	}
	m.table.SetRows(rows)

	// Go to the top of the table after filtering
	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m *outcomesModel) Init() tea.Cmd {
	return nil
}

func (m *outcomesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + filter/help(3)
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		m.statusMsg = ""

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
		case "c":
			if idx := m.table.Cursor(); idx >= 0 && idx < len(m.visible) {
				if err := clipboard.WriteAll(m.visible[idx].Message()); err == nil {
					m.statusMsg = i18n.T("tui.outcomes.copied")
				}
			}
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

func (m *outcomesModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading run outcomes: %v", m.err))
	}

	var b strings.Builder
	title := i18n.T("tui.outcomes.title", m.run.ID, m.run.Source, m.run.Target)
	if m.run.Command == "check" {
		title = i18n.T("history.run_line", m.run.ID, i18n.T("history.check_run"))
	}
	b.WriteString(titleStyle.Render("📦 "+title) + "\n\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("tui.outcomes.empty")))
		b.WriteString(m.footerView())
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString(m.footerView())
	return b.String()
}

func (m *outcomesModel) footerView() string {
	colNames := []string{
		i18n.T("tui.filter.col_all"),
		i18n.T("tui.outcomes.header_node"),
		i18n.T("tui.outcomes.header_phase"),
		i18n.T("tui.outcomes.header_status"),
		i18n.T("tui.outcomes.header_detail"),
	}
	var filterStatus string
	if m.isFiltering {
		filterStatus = i18n.T("tui.filter.editing", colNames[m.filterCol], m.filter)
	} else if m.filter != "" {
		filterStatus = i18n.T("tui.filter.active", colNames[m.filterCol], m.filter)
	} else {
		filterStatus = i18n.T("tui.filter.hint")
	}

	footer := fmt.Sprintf("\n%s %s", i18n.T("tui.outcomes.footer"), filterStatus)
	if m.statusMsg != "" {
		footer += "\n" + statusMessageStyle.Render(m.statusMsg)
	}
	return helpStyle.Render(footer)
}
