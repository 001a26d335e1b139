package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// Section is one bordered field block:
//
//	╭─ Title (hint) ─────╮
//	│ content            │
//	╰─ footer ───────────╯
type Section struct {
	Title string
	// Hint follows the title in parentheses, e.g. a character counter.
	Hint string
	// Footer is embedded in the bottom border, e.g. a validation message.
	Footer string
	Width  int
	// Color replaces BorderDefaultColor when set, for focus or errors.
	Color    lipgloss.TerminalColor
	Emphasis bool
}

// Render draws content inside the section border. Rows narrower than the
// inner width are padded so the right border lines up.
func (s Section) Render(content []string) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if s.Emphasis && s.Color != nil {
		borderColor = s.Color
	}
	border := lipgloss.NewStyle().Foreground(borderColor)
	innerWidth := max(s.Width-2, 1)

	head := ""
	if s.Title != "" {
		head = lipgloss.NewStyle().Bold(true).Foreground(borderColor).Render(Truncate(s.Title, max(innerWidth-4, 1)))
		if s.Hint != "" {
			head += " " + lipgloss.NewStyle().Foreground(TextMutedColor).Render("("+s.Hint+")")
		}
	}
	foot := ""
	if s.Footer != "" {
		foot = lipgloss.NewStyle().Foreground(borderColor).Render(Truncate(s.Footer, max(innerWidth-4, 1)))
	}

	rows := make([]string, 0, len(content)+2)
	rows = append(rows, edge(border, borderTopLeft, head, borderTopRight, innerWidth))
	for _, row := range content {
		pad := ""
		if w := lipgloss.Width(row); w < innerWidth {
			pad = strings.Repeat(" ", innerWidth-w)
		}
		rows = append(rows, border.Render(borderVertical)+row+pad+border.Render(borderVertical))
	}
	rows = append(rows, edge(border, borderBottomLeft, foot, borderBottomRight, innerWidth))
	return strings.Join(rows, "\n")
}

// edge draws a horizontal border with label embedded after one dash.
func edge(border lipgloss.Style, left, label, right string, innerWidth int) string {
	if label == "" {
		return border.Render(left + strings.Repeat(borderHorizontal, innerWidth) + right)
	}
	// "─ " before and " " after the label
	rest := max(innerWidth-lipgloss.Width(label)-3, 0)
	return border.Render(left+borderHorizontal+" ") + label + border.Render(" "+strings.Repeat(borderHorizontal, rest)+right)
}
