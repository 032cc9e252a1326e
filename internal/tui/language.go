package tui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/fleetpush/internal/i18n"
)

// languageModel holds the state for the language selection menu.
type languageModel struct {
	choices     map[string]string // map of lang code to display name
	orderedKeys []string          // for stable iteration
	cursor      int
}

// newLanguageModel creates a new model for the language selection view.
func newLanguageModel() languageModel {
	choices := i18n.GetAvailableLocales()

	keys := make([]string, 0, len(choices))
	for k := range choices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := languageModel{choices: choices, orderedKeys: keys}
	for i, k := range keys {
		if k == i18n.GetLang() {
			m.cursor = i
			break
		}
	}
	return m
}

// View renders the language selection list.
func (m languageModel) View() string {
	var listItems []string
	listItems = append(listItems, titleStyle.Render(i18n.T("tui.language.title")), "")

	for i, langCode := range m.orderedKeys {
		displayName := m.choices[langCode]
		if m.cursor == i {
			listItems = append(listItems, selectedItemStyle.Render("▸ "+displayName))
		} else {
			listItems = append(listItems, itemStyle.Render("  "+displayName))
		}
	}

	paneStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	listPane := paneStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, listItems...))

	helpLine := helpStyle.Render(AlignFooter(i18n.T("tui.language.help"), "", 40))
	return lipgloss.JoinVertical(lipgloss.Left, listPane, "", helpLine)
}
