package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/depositform/internal/keys"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/ui/styles"
)

const (
	zoneBack     = "nav-back"
	zoneContinue = "nav-continue"

	// chromeHeight is header, stepper, page title and footer.
	chromeHeight = 7
)

func stepZone(id layout.PageID) string { return "step-" + string(id) }

func fieldZone(i int) string { return "field-" + strconv.Itoa(i) }

func (m Model) contentWidth() int {
	return max(m.width, 20)
}

func (m Model) bodyHeight() int {
	return max(m.height-chromeHeight, 3)
}

// View implements tea.Model.
func (m Model) View() string {
	snap := m.svc.Store.Snapshot()

	body, top, bottom := m.renderFields(snap)
	vp := m.viewport
	vp.SetContent(body)
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom > vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height)
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(snap),
		m.renderStepper(),
		m.renderPageTitle(),
		vp.View(),
		m.renderFooter(),
	)

	if m.showHelp {
		view = m.help.Overlay(view)
	}
	if m.modal != nil {
		view = m.modal.Overlay(view)
	}
	if m.toast.Visible() {
		view = m.toast.Overlay(view, m.width, m.height)
	}
	return zone.Scan(view)
}

func (m Model) renderHeader(snap store.Snapshot) string {
	title := "New upload"
	if id := tree.String(snap.Values, "id"); id != "" {
		title = "Draft " + id
	}
	if t := tree.String(snap.Values, "metadata.title"); t != "" {
		title += ": " + t
	}
	left := styles.HeaderStyle.Render(styles.Truncate(title, m.contentWidth()/2))

	right := ""
	if m.rt != "" {
		right = styles.StatusBarStyle.Render(m.resourceTypeLabel(m.rt))
	}
	gap := max(m.contentWidth()-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) resourceTypeLabel(rt layout.ResourceType) string {
	for _, o := range m.resourceTypes {
		if o.ID == rt && o.Label != "" {
			return o.Label
		}
	}
	return string(rt)
}

func (m Model) renderStepper() string {
	flagged := m.rec.Last().PagesWithFlaggedErrors
	sep := styles.StepStyle.Render("›")

	steps := make([]string, 0, len(m.svc.Layout.Pages))
	for i, p := range m.svc.Layout.Pages {
		label := fmt.Sprintf("%d. %s", i+1, p.Label)
		style := styles.StepStyle
		if p.ID == m.nav.Current() {
			style = styles.StepCurrentStyle
		}
		step := style.Render(label)
		if flagged.Has(p.ID) {
			step += styles.StepErrorMark
		}
		steps = append(steps, zone.Mark(stepZone(p.ID), step))
	}
	return strings.Join(steps, sep)
}

func (m Model) renderPageTitle() string {
	page, _ := m.svc.Layout.Page(m.nav.Current())
	title := styles.FieldLabelStyle.Render(page.Label)
	if m.rec.Last().PagesWithErrors.Has(page.ID) {
		title += " " + styles.FieldErrorStyle.Render("(has problems)")
	}
	return lipgloss.NewStyle().Padding(1, 1, 0, 1).Render(title)
}

// renderFields renders the page body and reports the line range of the
// focused field.
func (m Model) renderFields(snap store.Snapshot) (body string, top, bottom int) {
	width := m.contentWidth()
	blocks := make([]string, 0, len(m.fields))
	line := 0
	for i, f := range m.fields {
		if !f.focusable() {
			continue
		}
		block := zone.Mark(fieldZone(i), m.renderField(f, i == m.focused, snap, width))
		h := lipgloss.Height(block)
		if i == m.focused {
			top, bottom = line, line+h
		}
		line += h
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		return styles.FieldDisplayStyle.Render(" Nothing to fill in on this page."), 0, 1
	}
	return strings.Join(blocks, "\n"), top, bottom
}

func (m Model) renderField(f field, focused bool, snap store.Snapshot, width int) string {
	var content []string
	switch {
	case f.isSelect():
		content = append(content, " "+m.renderSelect(f, snap.Values, focused))
	case f.isInput():
		content = append(content, " "+f.input.View())
	default:
		content = append(content, " "+styles.FieldDisplayStyle.Render(summary(f, snap.Values)))
	}

	msg := visibleError(f, snap)
	if focused && f.help != "" && m.markdown != nil {
		for _, l := range strings.Split(m.markdown.Render(f.help), "\n") {
			content = append(content, " "+l)
		}
	}

	section := styles.Section{
		Title:    f.label,
		Hint:     f.counter(),
		Width:    width,
		Color:    styles.BorderHighlightFocusColor,
		Emphasis: focused,
	}
	if msg != "" {
		section.Footer = "✗ " + msg
		section.Color = styles.StatusErrorColor
		section.Emphasis = true
	}
	return section.Render(content)
}

func (m Model) renderSelect(f field, values tree.Tree, focused bool) string {
	label := "Select…"
	if i := f.selected(values); i >= 0 {
		label = f.options[i].label
	}
	if !focused {
		return label
	}
	return styles.FieldHelpStyle.Render("‹ ") + label + styles.FieldHelpStyle.Render(" ›")
}

// visibleError returns the error shown for f. An error is shown once the
// field, or something beneath it, is touched.
func visibleError(f field, snap store.Snapshot) string {
	for _, p := range f.paths {
		if !tree.IsTouched(snap.Touched, p) && !tree.HasBelow(snap.Touched, p) {
			continue
		}
		if msg := firstError(snap.Errors, p); msg != "" {
			return msg
		}
	}
	return ""
}

func (m Model) renderFooter() string {
	var buttons []string
	if _, ok := m.nav.Previous(); ok {
		buttons = append(buttons, zone.Mark(zoneBack, styles.SecondaryButtonStyle.Render("Back")))
	}
	if _, ok := m.nav.Next(); ok {
		buttons = append(buttons, zone.Mark(zoneContinue, styles.PrimaryButtonStyle.Render("Continue")))
	}
	row := strings.Join(buttons, " ")
	if m.busy {
		row += "  " + styles.StatusBarStyle.Render("Saving…")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(1, 1, 0, 1).Render(row),
		styles.StatusBarStyle.Render(m.keyHelp.View(keys.Form)),
	)
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n… %d more", len(lines)-n)
}
