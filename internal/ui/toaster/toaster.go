// Package toaster stacks short notifications in the corner of the form.
package toaster

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/depositform/internal/ui/overlay"
	"github.com/zjrosen/depositform/internal/ui/styles"
)

// DefaultDuration is how long a toast stays up.
const DefaultDuration = 3 * time.Second

// MaxVisible caps the stack; the oldest toast goes first.
const MaxVisible = 3

// Style determines the visual appearance of the toast.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

type toast struct {
	id      int
	message string
	style   Style
	repeats int
}

// Model holds the visible toasts, newest last. Repeating the newest message
// bumps its counter and restarts its timer instead of stacking a copy.
type Model struct {
	toasts []toast
	nextID int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show adds message and returns the command that dismisses it after d.
func (m Model) Show(message string, style Style, d time.Duration) (Model, tea.Cmd) {
	m.nextID++
	id := m.nextID

	toasts := make([]toast, 0, len(m.toasts)+1)
	toasts = append(toasts, m.toasts...)
	if n := len(toasts); n > 0 && toasts[n-1].message == message && toasts[n-1].style == style {
		toasts[n-1].id = id
		toasts[n-1].repeats++
	} else {
		toasts = append(toasts, toast{id: id, message: message, style: style})
		if len(toasts) > MaxVisible {
			toasts = toasts[len(toasts)-MaxVisible:]
		}
	}
	m.toasts = toasts

	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{id: id} })
}

// Update removes the toast a DismissMsg was scheduled for. A dismiss for a
// toast that was since repeated or pushed out does nothing.
func (m Model) Update(msg tea.Msg) Model {
	d, ok := msg.(DismissMsg)
	if !ok {
		return m
	}
	for i, t := range m.toasts {
		if t.id == d.id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			break
		}
	}
	return m
}

// Visible returns whether any toast is showing.
func (m Model) Visible() bool {
	return len(m.toasts) > 0
}

// Len returns the number of toasts showing.
func (m Model) Len() int {
	return len(m.toasts)
}

// Message returns the newest toast text, or "" when none is showing.
func (m Model) Message() string {
	if len(m.toasts) == 0 {
		return ""
	}
	return m.toasts[len(m.toasts)-1].message
}

// View renders the stack, newest at the bottom.
func (m Model) View() string {
	if len(m.toasts) == 0 {
		return ""
	}
	boxes := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		boxes[i] = t.render()
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func (t toast) render() string {
	icon, color := "✓", styles.ToastBorderSuccessColor
	switch t.style {
	case StyleError:
		icon, color = "✗", styles.ToastBorderErrorColor
	case StyleInfo:
		icon, color = "i", styles.ToastBorderInfoColor
	case StyleWarn:
		icon, color = "!", styles.ToastBorderWarnColor
	}

	var b strings.Builder
	b.WriteString(icon + " " + t.message)
	if t.repeats > 0 {
		fmt.Fprintf(&b, " ×%d", t.repeats+1)
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(b.String())
}

// Overlay renders the stack in the top right corner of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if len(m.toasts) == 0 {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.TopRight,
		PadX:     1,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg hides the toast it was scheduled for.
type DismissMsg struct {
	id int
}
