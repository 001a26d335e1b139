// Package help contains the key binding help overlay.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/depositform/internal/keys"
	"github.com/zjrosen/depositform/internal/ui/overlay"
	"github.com/zjrosen/depositform/internal/ui/styles"
)

// Section is one titled group of bindings.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// FormSections lists the form bindings in display order.
func FormSections() []Section {
	groups := keys.Form.FullHelp()
	titles := []string{"Fields", "Pages", "Actions", "General"}
	out := make([]Section, 0, len(groups)+1)
	for i, g := range groups {
		out = append(out, Section{Title: titles[i], Bindings: g})
	}
	return append(out, Section{Title: "Dialogs", Bindings: keys.Modal.ShortHelp()})
}

// Model renders the help overlay.
type Model struct {
	sections []Section
	width    int
	height   int
}

// New creates a help overlay for sections.
func New(sections []Section) Model {
	return Model{sections: sections}
}

// SetSize sets the viewport used for centering.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

// View renders the help box.
func (m Model) View() string {
	keyStyle := lipgloss.NewStyle().Foreground(styles.BorderHighlightFocusColor).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextSecondaryColor)
	titleStyle := lipgloss.NewStyle().Foreground(styles.OverlayTitleColor).Bold(true).Underline(true)

	keyWidth := 0
	for _, s := range m.sections {
		for _, b := range s.Bindings {
			keyWidth = max(keyWidth, lipgloss.Width(b.Help().Key))
		}
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Keyboard shortcuts"))
	for _, s := range m.sections {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render(s.Title))
		for _, binding := range s.Bindings {
			if !binding.Enabled() {
				continue
			}
			h := binding.Help()
			b.WriteString("\n")
			b.WriteString(keyStyle.Render(h.Key + strings.Repeat(" ", keyWidth-lipgloss.Width(h.Key))))
			b.WriteString("  ")
			b.WriteString(descStyle.Render(h.Desc))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FieldHelpStyle.Render("f1 or esc to close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Padding(1, 2).
		Render(b.String())
}

// Overlay renders the help box centered on bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), bg)
}
