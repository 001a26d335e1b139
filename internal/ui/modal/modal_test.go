package modal

import (
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

func confirmModal() Model {
	return New(Config{
		ID:             "confirm",
		Title:          "Check your entries",
		Message:        "There are problems with the information you've entered. Do you want to fix them before moving on?",
		PrimaryLabel:   "Fix the problems",
		SecondaryLabel: "Continue anyway",
	})
}

func run(t *testing.T, cmd tea.Cmd) ChoiceMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ChoiceMsg)
	require.True(t, ok)
	return msg
}

func TestNew_FocusesPrimary(t *testing.T) {
	m := confirmModal()
	require.Equal(t, ChoicePrimary, m.Focused())
	require.Equal(t, "confirm", m.ID())
}

func TestNew_Defaults(t *testing.T) {
	m := New(Config{ID: "x"})
	require.Equal(t, "OK", m.config.PrimaryLabel)
	require.Equal(t, 50, m.config.Width)
}

func TestUpdate_EnterChoosesFocused(t *testing.T) {
	m := confirmModal()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ChoiceMsg{ID: "confirm", Choice: ChoicePrimary}, run(t, cmd))
}

func TestUpdate_SwitchThenEnter(t *testing.T) {
	m := confirmModal()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Nil(t, cmd)
	require.Equal(t, ChoiceSecondary, m.Focused())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ChoiceSecondary, run(t, cmd).Choice)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, ChoicePrimary, m.Focused())
}

func TestUpdate_SwitchWithoutSecondaryStays(t *testing.T) {
	m := New(Config{ID: "info", PrimaryLabel: "OK"})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, ChoicePrimary, m.Focused())
}

func TestUpdate_EscDismisses(t *testing.T) {
	_, cmd := confirmModal().Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ChoiceDismissed, run(t, cmd).Choice)
}

func TestUpdate_OtherKeysIgnored(t *testing.T) {
	m, cmd := confirmModal().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Nil(t, cmd)
	require.Equal(t, ChoicePrimary, m.Focused())
}

func TestView_ContainsLabelsAndWrappedMessage(t *testing.T) {
	m := confirmModal()
	m.SetSize(80, 24)
	view := zone.Scan(m.View())
	require.Contains(t, view, "Check your entries")
	require.Contains(t, view, "Fix the problems")
	require.Contains(t, view, "Continue anyway")
	require.Contains(t, view, "problems")
}

func TestView_BodyKeptVerbatim(t *testing.T) {
	m := New(Config{ID: "recover", Title: "Recover", Body: "+ metadata:\n+   title: A"})
	view := zone.Scan(m.View())
	require.Contains(t, view, "+   title: A")
}

func TestOverlay_CentersOnBackground(t *testing.T) {
	m := confirmModal()
	m.SetSize(100, 30)
	bg := ""
	for i := 0; i < 30; i++ {
		bg += "...................................................................................................\n"
	}
	out := zone.Scan(m.Overlay(bg))
	require.Contains(t, out, "Continue anyway")
	require.Contains(t, out, "....")
}

func TestChoice_String(t *testing.T) {
	require.Equal(t, "primary", ChoicePrimary.String())
	require.Equal(t, "secondary", ChoiceSecondary.String())
	require.Equal(t, "dismissed", ChoiceDismissed.String())
}
