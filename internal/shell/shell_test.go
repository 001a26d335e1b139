package shell

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/flags"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/nav"
	"github.com/zjrosen/depositform/internal/pubsub"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/submit"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/ui/modal"
	"github.com/zjrosen/depositform/internal/validation"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

type mockSubmitter struct {
	mock.Mock
}

func (s *mockSubmitter) SaveDraft(ctx context.Context, values tree.Tree) (submit.Response, error) {
	args := s.Called(ctx, values)
	return args.Get(0).(submit.Response), args.Error(1)
}

func (s *mockSubmitter) Publish(ctx context.Context, values tree.Tree) (submit.Response, error) {
	args := s.Called(ctx, values)
	return args.Get(0).(submit.Response), args.Error(1)
}

func newTestModel(t *testing.T, values tree.Tree, opts ...func(*Services)) Model {
	t.Helper()
	l := layout.Default()
	s := store.New(values, nil, validation.ForLayout(l))
	t.Cleanup(s.Close)

	svc := Services{Layout: l, Store: s, Config: config.Defaults()}
	for _, opt := range opts {
		opt(&svc)
	}
	m, err := New(svc)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m.resize(100, 40)
}

func withFlags(names ...string) func(*Services) {
	return func(s *Services) {
		on := make(map[string]bool, len(names))
		for _, n := range names {
			on[n] = true
		}
		s.Flags = flags.New(on)
	}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	return m.update(msg)
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func fieldIndex(t *testing.T, m Model, path string) int {
	t.Helper()
	for i, f := range m.fields {
		if f.path() == path {
			return i
		}
	}
	require.Failf(t, "field not on page", "path %s", path)
	return -1
}

func validValues() tree.Tree {
	return tree.Tree{
		"metadata": tree.Tree{
			"resource_type":    "dataset",
			"title":            "On Sparrows",
			"publication_date": "2024",
			"creators":         []any{map[string]any{"person_or_org": map[string]any{"name": "Ada"}}},
		},
	}
}

func TestNew_RequiresLayoutAndStore(t *testing.T) {
	_, err := New(Services{Store: store.New(nil, nil, nil)})
	require.Error(t, err)

	_, err = New(Services{Layout: layout.Default()})
	require.Error(t, err)
}

func TestNew_StartsOnFirstPage(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	require.Equal(t, layout.PageID("page-1"), m.Page())

	view := m.View()
	require.Contains(t, view, "1. Basic information")
	require.Contains(t, view, "6. Submit")
	require.Contains(t, view, "Continue")
	require.NotContains(t, view, "Back")
	require.True(t, m.svc.History.Current().Synthetic)
}

func TestNew_StartsOnPageFromHistory(t *testing.T) {
	h, err := nav.ParseURLHistory("/uploads/new?depositFormPage=page-3")
	require.NoError(t, err)

	m := newTestModel(t, tree.Tree{}, func(s *Services) { s.History = h })
	require.Equal(t, layout.PageID("page-3"), m.Page())
}

func TestNextPage_WithErrorsAsksForConfirmation(t *testing.T) {
	m := newTestModel(t, tree.Tree{})

	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))
	require.True(t, m.Confirming())
	require.Equal(t, layout.PageID("page-1"), m.Page())
	require.True(t, m.svc.Store.Touched("metadata.title"))
	require.True(t, m.svc.Store.Touched("metadata.resource_type"))

	view := m.View()
	require.Contains(t, view, "Fix the problems")
	require.Contains(t, view, "Continue anyway")
}

func TestNextPage_WithoutErrorsCommits(t *testing.T) {
	m := newTestModel(t, validValues())

	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))
	require.False(t, m.Confirming())
	require.Equal(t, layout.PageID("page-2"), m.Page())
}

func TestConfirm_ContinueAnywayCommits(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))

	m, _ = send(t, m, modal.ChoiceMsg{ID: confirmModalID, Choice: modal.ChoiceSecondary})
	require.False(t, m.Confirming())
	require.Equal(t, layout.PageID("page-2"), m.Page())

	cur := m.svc.History.Current()
	require.False(t, cur.Synthetic)
	require.Equal(t, "page-2", cur.URL.Query().Get(nav.PageParam))

	require.True(t, m.rec.Last().PagesWithFlaggedErrors.Has("page-1"))
	require.Contains(t, m.View(), "!")
}

func TestConfirm_FixProblemsFocusesFirstInvalid(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))

	m, _ = send(t, m, modal.ChoiceMsg{ID: confirmModalID, Choice: modal.ChoicePrimary})
	require.False(t, m.Confirming())
	require.Equal(t, layout.PageID("page-1"), m.Page())

	f, ok := m.focusedField()
	require.True(t, ok)
	require.Equal(t, validation.TypePath, f.path())
}

func TestConfirm_KeyboardChoice(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))

	m, _ = send(t, m, keyMsg(tea.KeyTab))
	m, cmd := send(t, m, keyMsg(tea.KeyEnter))
	require.NotNil(t, cmd)

	choice, ok := cmd().(modal.ChoiceMsg)
	require.True(t, ok)
	require.Equal(t, modal.ChoiceSecondary, choice.Choice)

	m, _ = send(t, m, choice)
	require.Equal(t, layout.PageID("page-2"), m.Page())
}

func TestHistoryBack_FollowsHistory(t *testing.T) {
	m := newTestModel(t, validValues())
	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))
	require.Equal(t, layout.PageID("page-2"), m.Page())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft, Alt: true})
	require.Equal(t, layout.PageID("page-1"), m.Page())
}

func TestPrevPage(t *testing.T) {
	m := newTestModel(t, validValues())
	m, _ = send(t, m, keyMsg(tea.KeyCtrlN))
	m, _ = send(t, m, keyMsg(tea.KeyCtrlP))
	require.Equal(t, layout.PageID("page-1"), m.Page())
	require.Len(t, m.fields, 7)
}

func TestTyping_WritesStore(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m = m.setFocus(fieldIndex(t, m, "metadata.title"), false)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("On Sparrows")})

	v, ok := m.svc.Store.Value("metadata.title")
	require.True(t, ok)
	require.Equal(t, "On Sparrows", v)
	require.Empty(t, m.svc.Store.Error("metadata.title"))
	require.Contains(t, m.View(), "On Sparrows")
}

func TestBlur_TouchesAndShowsError(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m = m.setFocus(fieldIndex(t, m, "metadata.title"), false)
	require.NotContains(t, m.View(), "A title is required")

	m, _ = send(t, m, keyMsg(tea.KeyTab))
	require.True(t, m.svc.Store.Touched("metadata.title"))
	require.Contains(t, m.View(), "A title is required")
}

func TestSelect_ResourceTypeReresolvesPages(t *testing.T) {
	m := newTestModel(t, tree.Tree{"metadata": tree.Tree{"resource_type": "textDocument-journalArticle"}})
	require.Contains(t, m.rec.Index()["page-4"], "custom_fields.journal:journal.title")
	require.Equal(t, "Article title", m.fields[fieldIndex(t, m, "metadata.title")].label)

	m = m.setFocus(fieldIndex(t, m, validation.TypePath), false)
	m, _ = send(t, m, keyMsg(tea.KeyRight))

	require.Equal(t, layout.ResourceType("textDocument-monograph"), validation.ResourceType(m.svc.Store.Snapshot().Values))
	require.NotContains(t, m.rec.Index()["page-4"], "custom_fields.journal:journal.title")
	require.Contains(t, m.rec.Index()["page-4"], "custom_fields.imprint:imprint.isbn")
	require.Equal(t, "Monograph title", m.fields[fieldIndex(t, m, "metadata.title")].label)
	require.Contains(t, m.View(), "Monograph")
}

func TestSave_AppliesServerResponse(t *testing.T) {
	sub := &mockSubmitter{}
	values := validValues()
	saved := tree.Clone(values)
	tree.Set(saved, "id", "abc12")
	tree.Set(saved, "metadata.publisher", submit.DefaultPublisher)

	sub.On("SaveDraft", mock.Anything, mock.MatchedBy(func(v tree.Tree) bool {
		return tree.String(v, "metadata.publisher") == submit.DefaultPublisher
	})).Return(submit.Response{
		Values: saved,
		Errors: tree.Tree{"metadata": tree.Tree{"title": "Title is too generic"}},
		Status: 200,
	}, nil)

	m := newTestModel(t, values, func(s *Services) { s.Submitter = sub })

	m, cmd := send(t, m, keyMsg(tea.KeyCtrlS))
	require.True(t, m.busy)
	require.NotNil(t, cmd)

	m, _ = send(t, m, cmd())
	require.False(t, m.busy)
	sub.AssertExpectations(t)

	require.Equal(t, "Title is too generic", m.svc.Store.Error("metadata.title"))
	require.True(t, m.svc.Store.Touched("metadata.title"))
	require.True(t, m.rec.Last().PagesWithFlaggedErrors.Has("page-1"))
	require.Equal(t, "Draft saved with 1 problem", m.toast.Message())

	view := m.View()
	require.Contains(t, view, "Draft abc12")
	require.Contains(t, view, "Title is too generic")
}

func TestSave_Busy(t *testing.T) {
	sub := &mockSubmitter{}
	m := newTestModel(t, validValues(), func(s *Services) { s.Submitter = sub })

	m, cmd := send(t, m, keyMsg(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	_, cmd = send(t, m, keyMsg(tea.KeyCtrlS))
	require.Nil(t, cmd)
}

func TestSave_WithoutSubmitter(t *testing.T) {
	m := newTestModel(t, validValues())
	m, _ = send(t, m, keyMsg(tea.KeyCtrlS))
	require.Equal(t, "No repository configured", m.toast.Message())
}

func TestSave_Failure(t *testing.T) {
	sub := &mockSubmitter{}
	sub.On("SaveDraft", mock.Anything, mock.Anything).
		Return(submit.Response{}, &submit.APIError{Status: 500, Message: "Internal server error"})

	m := newTestModel(t, validValues(), func(s *Services) { s.Submitter = sub })
	m, cmd := send(t, m, keyMsg(tea.KeyCtrlS))
	m, _ = send(t, m, cmd())

	require.Equal(t, "Save failed: server returned 500: Internal server error", m.toast.Message())
	require.Equal(t, "On Sparrows", tree.String(m.svc.Store.Snapshot().Values, "metadata.title"))
}

func TestPublish_WithoutRecordID(t *testing.T) {
	sub := &mockSubmitter{}
	sub.On("Publish", mock.Anything, mock.Anything).Return(submit.Response{}, submit.ErrNoRecordID)

	m := newTestModel(t, validValues(), func(s *Services) { s.Submitter = sub })
	m, cmd := send(t, m, keyMsg(tea.KeyCtrlU))
	m, _ = send(t, m, cmd())

	require.Equal(t, "Save the draft before publishing", m.toast.Message())
	sub.AssertExpectations(t)
}

func TestPublish_Success(t *testing.T) {
	sub := &mockSubmitter{}
	values := validValues()
	tree.Set(values, "id", "abc12")
	sub.On("Publish", mock.Anything, mock.Anything).Return(submit.Response{Values: values, Status: 202}, nil)

	m := newTestModel(t, values, func(s *Services) { s.Submitter = sub })
	m, cmd := send(t, m, keyMsg(tea.KeyCtrlU))
	m, _ = send(t, m, cmd())

	require.Equal(t, "Published", m.toast.Message())
}

func TestRecovery_RestoresDraft(t *testing.T) {
	ctx := context.Background()
	key := draft.Key{UserID: "7", RecordID: "abc12"}
	cs := draft.NewCacheStore()
	require.NoError(t, cs.Save(ctx, draft.Draft{
		Key:     key,
		Values:  tree.Tree{"metadata": tree.Tree{"title": "Draft title"}},
		SavedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}))
	mgr := draft.NewManager(cs, key)

	m := newTestModel(t, tree.Tree{"metadata": tree.Tree{"title": "Server title"}},
		withFlags(flags.FlagDraftRecovery),
		func(s *Services) { s.Drafts = mgr },
	)

	m, _ = send(t, m, m.checkDraftCmd()())
	require.NotNil(t, m.modal)
	require.Equal(t, recoveryModalID, m.modal.ID())
	view := m.View()
	require.Contains(t, view, "Unsaved changes")
	require.Contains(t, view, "Draft title")

	m, cmd := send(t, m, modal.ChoiceMsg{ID: recoveryModalID, Choice: modal.ChoicePrimary})
	require.Nil(t, m.modal)
	m, _ = send(t, m, cmd())

	require.Equal(t, "Draft title", tree.String(m.svc.Store.Snapshot().Values, "metadata.title"))
	require.Equal(t, "Draft title", m.fields[fieldIndex(t, m, "metadata.title")].input.Value())
	require.Equal(t, "Recovered unsaved changes", m.toast.Message())

	_, err := cs.Load(ctx, key)
	require.ErrorIs(t, err, draft.ErrNotFound)
}

func TestRecovery_Discard(t *testing.T) {
	ctx := context.Background()
	key := draft.Key{UserID: "7", RecordID: "abc12"}
	cs := draft.NewCacheStore()
	require.NoError(t, cs.Save(ctx, draft.Draft{Key: key, Values: tree.Tree{"metadata": tree.Tree{"title": "Draft title"}}}))
	mgr := draft.NewManager(cs, key)

	m := newTestModel(t, tree.Tree{"metadata": tree.Tree{"title": "Server title"}}, func(s *Services) { s.Drafts = mgr })
	m, _ = send(t, m, m.checkDraftCmd()())

	m, cmd := send(t, m, modal.ChoiceMsg{ID: recoveryModalID, Choice: modal.ChoiceSecondary})
	m, _ = send(t, m, cmd())

	require.Equal(t, "Server title", tree.String(m.svc.Store.Snapshot().Values, "metadata.title"))
	require.True(t, mgr.Asked())
}

func TestRecovery_CheckFailureWarns(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m, _ = send(t, m, draftCheckedMsg{err: errors.New("disk gone")})
	require.Equal(t, "Could not read local draft", m.toast.Message())
	require.Nil(t, m.modal)
}

func TestAutosave_DebouncesAndWrites(t *testing.T) {
	ctx := context.Background()
	key := draft.Key{UserID: "7", RecordID: "abc12"}
	cs := draft.NewCacheStore()
	mgr := draft.NewManager(cs, key)

	m := newTestModel(t, tree.Tree{},
		withFlags(flags.FlagDraftRecovery, flags.FlagAutosave),
		func(s *Services) { s.Drafts = mgr },
	)
	m, _ = send(t, m, m.checkDraftCmd()())
	require.True(t, mgr.Asked())

	m = m.setFocus(fieldIndex(t, m, "metadata.title"), false)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	require.Equal(t, 2, m.autosaveSeq)

	_, cmd := send(t, m, autosaveTickMsg{seq: 1})
	require.Nil(t, cmd)

	m, cmd = send(t, m, autosaveTickMsg{seq: 2})
	require.NotNil(t, cmd)
	saved, ok := cmd().(autosavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	require.True(t, saved.saved)

	d, err := cs.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "ab", tree.String(d.Values, "metadata.title"))
}

func TestAutosave_DisabledByFlag(t *testing.T) {
	mgr := draft.NewManager(draft.NewCacheStore(), draft.Key{UserID: "7", RecordID: "abc12"})
	m := newTestModel(t, tree.Tree{}, func(s *Services) { s.Drafts = mgr })

	m = m.setFocus(fieldIndex(t, m, "metadata.title"), false)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.Zero(t, m.autosaveSeq)
}

const twoPageLayout = `
pages:
  - id: page-1
    label: Basics
    fields:
      - component: TitleComponent
        label: Title
  - id: page-2
    label: Attachments
    fields:
      - component: FilesUploadComponent
        label: Files
`

func TestLayoutReload_SwapsPages(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	require.Contains(t, m.View(), "3. Subjects")

	l, err := layout.Parse([]byte(twoPageLayout))
	require.NoError(t, err)

	m, cmd := send(t, m, layoutReloadedMsg{layout: l})
	require.NotNil(t, cmd)
	require.Equal(t, "Layout reloaded", m.toast.Message())

	view := m.View()
	require.Contains(t, view, "2. Attachments")
	require.NotContains(t, view, "3. Subjects")
	require.Len(t, m.fields, 1)
}

func TestLayoutReload_KeepsLayoutOnError(t *testing.T) {
	m := newTestModel(t, tree.Tree{})

	m, _ = send(t, m, layoutReloadedMsg{err: errors.New("yaml: line 3: bad indentation")})
	require.Equal(t, "Layout not reloaded: yaml: line 3: bad indentation", m.toast.Message())
	require.Len(t, m.svc.Layout.Pages, 6)
}

func TestVocabulary_ReplacesResourceTypes(t *testing.T) {
	m := newTestModel(t, validValues())
	m, _ = send(t, m, vocabularyMsg{options: []layout.ResourceTypeOption{{ID: "dataset", Label: "Research data"}}})

	f := m.fields[fieldIndex(t, m, validation.TypePath)]
	require.Len(t, f.options, 1)
	require.Contains(t, m.View(), "Research data")
}

func TestVocabulary_ErrorKeepsLayoutTypes(t *testing.T) {
	m := newTestModel(t, validValues())
	before := len(m.resourceTypes)
	m, _ = send(t, m, vocabularyMsg{err: errors.New("timeout")})
	require.Len(t, m.resourceTypes, before)
}

func TestStoreEvent_Resyncs(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	ch := m.svc.Store.Subscribe(m.ctx)
	m.svc.Store.SetFieldTouched("metadata.title", true)

	var ev pubsub.Event[store.Change]
	select {
	case ev = <-ch:
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for store change")
	}

	m, cmd := send(t, m, ev)
	require.NotNil(t, cmd)
	require.True(t, m.rec.Last().PagesWithFlaggedErrors.Has("page-1"))
}

func TestHelp_Toggles(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	m, _ = send(t, m, keyMsg(tea.KeyF1))
	require.True(t, m.showHelp)
	require.Contains(t, m.View(), "Dialogs")

	m, _ = send(t, m, keyMsg(tea.KeyEsc))
	require.False(t, m.showHelp)
}

func TestQuit_UnmountsAndQuits(t *testing.T) {
	m := newTestModel(t, tree.Tree{})
	require.True(t, m.svc.History.Current().Synthetic)

	_, cmd := send(t, m, keyMsg(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.False(t, m.svc.History.Current().Synthetic)
}

func TestView_HidesActionFields(t *testing.T) {
	m := newTestModel(t, validValues())
	for range 5 {
		m, _ = send(t, m, keyMsg(tea.KeyCtrlN))
	}
	require.Equal(t, layout.PageID("page-6"), m.Page())
	require.False(t, strings.Contains(m.View(), "SubmitActions"))
}
