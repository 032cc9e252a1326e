// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui provides the terminal user interface for Fleetpush.
// This file, tui.go, is the main entry point for the TUI, containing the
// top-level model that acts as a router to all other sub-views.
package tui // import "github.com/toeirei/fleetpush/internal/tui"

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/logging"
)

// viewState represents which part of the UI is currently active.
type viewState int

const (
	// menuView is the navigation menu.
	menuView viewState = iota
	runsView
	outcomesView
	actionLogView
	languageView
)

// backToMenuMsg signals that a sub-view wants to return to the menu.
type backToMenuMsg struct{}

// runSelectedMsg asks the router to open the outcome view for one run.
type runSelectedMsg struct {
	runID int64
}

// languageChangedMsg signals that the language has changed and the UI should be re-initialized.
type languageChangedMsg struct{}

// configSaver persists the active configuration after changes made inside
// the TUI, such as a language switch. Swappable in tests.
var configSaver interface{ Save() error } = viperSaver{}

type viperSaver struct{}

func (viperSaver) Save() error {
	if err := viper.WriteConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return viper.SafeWriteConfig()
		}
		return err
	}
	return nil
}

// mainModel is the top-level model for the TUI. It acts as a state machine
// and router, delegating updates and view rendering to the currently active sub-model.
type mainModel struct {
	state    viewState
	menu     menuModel
	runs     *runsModel
	outcomes *outcomesModel
	actions  *actionLogModel
	language languageModel
	width    int
	height   int
	err      error
}

// menuModel holds the state for the main menu.
type menuModel struct {
	choices []string // The menu items to show.
	cursor  int      // Which menu item our cursor is pointing at.
}

// initialModel creates the starting state of the TUI, beginning at the main menu.
func initialModel() mainModel {
	return mainModel{
		state: menuView,
		menu: menuModel{
			choices: []string{
				i18n.T("tui.menu.runs"),
				i18n.T("tui.menu.action_log"),
				i18n.T("tui.menu.language"),
			},
		},
	}
}

func (m mainModel) Init() tea.Cmd {
	return nil
}

// Update is the main message loop. It handles all events (like key presses and
// window size changes) and delegates them to the active sub-model.
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings that work everywhere.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case runSelectedMsg:
		m.state = outcomesView
		m.outcomes = newOutcomesModel(msg.runID)
		var updated tea.Model
		updated, cmd = m.outcomes.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.outcomes = updated.(*outcomesModel)
		return m, cmd

	case languageChangedMsg:
		// Re-initialize the entire model to apply new translations everywhere.
		newModel := initialModel()
		newModel.width = m.width
		newModel.height = m.height
		return newModel, newModel.Init()
	}

	// Delegate updates to the currently active view.
	switch m.state {
	case runsView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, nil
		}
		var updated tea.Model
		updated, cmd = m.runs.Update(msg)
		m.runs = updated.(*runsModel)

	case outcomesView:
		if _, ok := msg.(backToMenuMsg); ok {
			// Outcomes are entered from the run list, so back means the list.
			m.state = runsView
			m.runs = newRunsModel()
			var updated tea.Model
			updated, cmd = m.runs.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
			m.runs = updated.(*runsModel)
			return m, cmd
		}
		var updated tea.Model
		updated, cmd = m.outcomes.Update(msg)
		m.outcomes = updated.(*outcomesModel)

	case actionLogView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, nil
		}
		var updated tea.Model
		updated, cmd = m.actions.Update(msg)
		m.actions = updated.(*actionLogModel)

	case languageView:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q", "esc":
				m.state = menuView
				return m, nil
			case "up", "k":
				if m.language.cursor > 0 {
					m.language.cursor--
				}
			case "down", "j":
				if m.language.cursor < len(m.language.orderedKeys)-1 {
					m.language.cursor++
				}
			case "enter":
				langCode := m.language.orderedKeys[m.language.cursor]
				i18n.SetLang(langCode)
				viper.Set("language", langCode)
				if err := configSaver.Save(); err != nil {
					m.err = fmt.Errorf("failed to save config: %w", err)
				}
				return m, func() tea.Msg { return languageChangedMsg{} }
			}
		}

	default: // menuView
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q":
				return m, tea.Quit
			case "up", "k":
				if m.menu.cursor > 0 {
					m.menu.cursor--
				}
			case "down", "j":
				if m.menu.cursor < len(m.menu.choices)-1 {
					m.menu.cursor++
				}
			case "enter":
				switch m.menu.cursor {
				case 0: // Deployment runs
					m.state = runsView
					m.runs = newRunsModel()
					var updated tea.Model
					updated, cmd = m.runs.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.runs = updated.(*runsModel)
					return m, cmd
				case 1: // Action log
					m.state = actionLogView
					m.actions = newActionLogModel()
					var updated tea.Model
					updated, cmd = m.actions.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.actions = updated.(*actionLogModel)
					return m, cmd
				case 2: // Language
					m.state = languageView
					m.language = newLanguageModel()
					return m, nil
				}
			case "L":
				m.state = languageView
				m.language = newLanguageModel()
				return m, nil
			}
		}
	}

	return m, cmd
}

// View renders the TUI. It's called after every Update and delegates rendering
// to the currently active sub-model.
func (m mainModel) View() string {
	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1, 2)
		return errStyle.Render(fmt.Sprintf("An error occurred: %v", m.err))
	}

	switch m.state {
	case runsView:
		return m.runs.View()
	case outcomesView:
		return m.outcomes.View()
	case actionLogView:
		return m.actions.View()
	case languageView:
		return m.language.View()
	default: // menuView
		return m.menu.View()
	}
}

// View renders the main menu.
func (m menuModel) View() string {
	title := mainTitleStyle.Render("🚚 " + i18n.T("tui.menu.title"))
	subTitle := helpStyle.Render(i18n.T("tui.menu.subtitle"))

	var items []string
	items = append(items, title, subTitle, "")
	for i, choice := range m.choices {
		if m.cursor == i {
			items = append(items, selectedItemStyle.Render("▸ "+choice))
		} else {
			items = append(items, itemStyle.Render("  "+choice))
		}
	}
	items = append(items, "", helpStyle.Render(i18n.T("tui.menu.help")))
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

// Run is the main entrypoint for the TUI. It initializes and runs the Bubble Tea program.
func Run() {
	if _, err := tea.NewProgram(initialModel()).Run(); err != nil {
		logging.Errorf("TUI run error: %v", err)
		os.Exit(1)
	}
}
