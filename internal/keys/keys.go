// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// FormKeyMap holds the bindings active while editing a page.
type FormKeyMap struct {
	// Fields
	NextField  key.Binding
	PrevField  key.Binding
	NextOption key.Binding
	PrevOption key.Binding

	// Pages
	NextPage key.Binding
	PrevPage key.Binding
	HistBack key.Binding

	// Actions
	Save    key.Binding
	Publish key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings for the short help view.
func (k FormKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextField, k.NextPage, k.PrevPage, k.Save, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k FormKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.PrevField, k.NextOption, k.PrevOption}, // Fields
		{k.NextPage, k.PrevPage, k.HistBack},                   // Pages
		{k.Save, k.Publish},                                    // Actions
		{k.Help, k.Quit},                                       // General
	}
}

// Form is the page editing key map.
var Form = FormKeyMap{
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab/↓", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab/↑", "previous field"),
	),
	NextOption: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next option"),
	),
	PrevOption: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous option"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("ctrl+n", "pgdown"),
		key.WithHelp("ctrl+n", "continue"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("ctrl+p", "pgup"),
		key.WithHelp("ctrl+p", "back"),
	),
	HistBack: key.NewBinding(
		key.WithKeys("alt+left"),
		key.WithHelp("alt+←", "history back"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save draft"),
	),
	Publish: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("ctrl+u", "publish"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ModalKeyMap holds the bindings of a two-button modal.
type ModalKeyMap struct {
	Switch  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings for the short help view.
func (k ModalKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the full help view.
func (k ModalKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Modal is the confirm and recovery modal key map.
var Modal = ModalKeyMap{
	Switch: key.NewBinding(
		key.WithKeys("tab", "shift+tab", "left", "right"),
		key.WithHelp("tab/←/→", "switch button"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss"),
	),
}
