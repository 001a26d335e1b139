// Package modal provides a two-button choice dialog drawn over the form.
package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/depositform/internal/keys"
	"github.com/zjrosen/depositform/internal/ui/overlay"
	"github.com/zjrosen/depositform/internal/ui/styles"
)

// Choice is the outcome of a modal.
type Choice int

const (
	// ChoicePrimary is the first (default focused) button.
	ChoicePrimary Choice = iota
	// ChoiceSecondary is the second button.
	ChoiceSecondary
	// ChoiceDismissed means the modal was closed with esc.
	ChoiceDismissed
)

func (c Choice) String() string {
	switch c {
	case ChoicePrimary:
		return "primary"
	case ChoiceSecondary:
		return "secondary"
	}
	return "dismissed"
}

// Config controls modal appearance.
type Config struct {
	// ID tags the ChoiceMsg and prefixes the click zones.
	ID      string
	Title   string
	Message string
	// Body is shown below the message without re-wrapping (a diff, a list).
	Body           string
	PrimaryLabel   string
	SecondaryLabel string
	Width          int // content width, 0 means 50
}

// ChoiceMsg is sent when the user picks a button or dismisses the modal.
type ChoiceMsg struct {
	ID     string
	Choice Choice
}

// Model is the modal state.
type Model struct {
	config  Config
	focused Choice
	width   int
	height  int
}

// New creates a modal focused on the primary button.
func New(cfg Config) Model {
	if cfg.PrimaryLabel == "" {
		cfg.PrimaryLabel = "OK"
	}
	if cfg.Width <= 0 {
		cfg.Width = 50
	}
	return Model{config: cfg, focused: ChoicePrimary}
}

// ID returns the modal id.
func (m Model) ID() string {
	return m.config.ID
}

// Focused returns the focused button.
func (m Model) Focused() Choice {
	return m.focused
}

func (m Model) hasSecondary() bool {
	return m.config.SecondaryLabel != ""
}

func (m Model) zoneID(c Choice) string {
	return m.config.ID + "-" + c.String()
}

func (m Model) choose(c Choice) tea.Cmd {
	id := m.config.ID
	return func() tea.Msg { return ChoiceMsg{ID: id, Choice: c} }
}

// Update handles keys, clicks and resizes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Modal.Switch):
			if m.hasSecondary() {
				if m.focused == ChoicePrimary {
					m.focused = ChoiceSecondary
				} else {
					m.focused = ChoicePrimary
				}
			}
			return m, nil
		case key.Matches(msg, keys.Modal.Confirm):
			return m, m.choose(m.focused)
		case key.Matches(msg, keys.Modal.Cancel):
			return m, m.choose(ChoiceDismissed)
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		buttons := []Choice{ChoicePrimary}
		if m.hasSecondary() {
			buttons = append(buttons, ChoiceSecondary)
		}
		for _, c := range buttons {
			if z := zone.Get(m.zoneID(c)); z != nil && z.InBounds(msg) {
				m.focused = c
				return m, m.choose(c)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the modal box.
func (m Model) View() string {
	contentWidth := max(m.config.Width, lipgloss.Width(m.config.Title))
	if m.width > 0 {
		contentWidth = min(contentWidth, max(m.width-6, 20))
	}
	boxWidth := contentWidth + 2

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1)
	divider := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", boxWidth))

	var content strings.Builder
	if m.config.Message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor)
		content.WriteString(msgStyle.Render(wordwrap.String(m.config.Message, contentWidth)))
		content.WriteString("\n\n")
	}
	if m.config.Body != "" {
		content.WriteString(m.config.Body)
		content.WriteString("\n\n")
	}
	content.WriteString(m.renderButtons())

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.config.Title))
	b.WriteString("\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Padding(1, 1).Render(content.String()))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(boxWidth).
		Render(b.String())
}

func (m Model) renderButtons() string {
	primary := styles.PrimaryButtonStyle
	if m.focused == ChoicePrimary {
		primary = styles.PrimaryButtonFocusedStyle
	}
	out := zone.Mark(m.zoneID(ChoicePrimary), primary.Render(m.config.PrimaryLabel))
	if !m.hasSecondary() {
		return out
	}
	secondary := styles.SecondaryButtonStyle
	if m.focused == ChoiceSecondary {
		secondary = styles.SecondaryButtonFocusedStyle
	}
	return out + "  " + zone.Mark(m.zoneID(ChoiceSecondary), secondary.Render(m.config.SecondaryLabel))
}

// Overlay renders the modal centered on bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), bg)
}

// SetSize updates the viewport size used for centering.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
