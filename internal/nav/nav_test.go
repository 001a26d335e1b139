package nav

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/reconcile"
	"github.com/zjrosen/depositform/internal/resolver"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/tree"
)

var pages = []layout.PageID{"page-1", "page-2", "page-3"}

type fakeToucher struct{ touched [][]string }

func (f *fakeToucher) TouchAll(paths []string) { f.touched = append(f.touched, paths) }

type fakeErrors reconcile.PageErrors

func (f fakeErrors) PagesWithErrors() reconcile.PageErrors { return reconcile.PageErrors(f) }

type fakeFields resolver.Index

func (f fakeFields) Index() resolver.Index { return resolver.Index(f) }

type fakeFocus struct {
	confirm int
	invalid []layout.PageID
}

func (f *fakeFocus) FocusConfirm() { f.confirm++ }
func (f *fakeFocus) FocusFirstInvalid(page layout.PageID) { f.invalid = append(f.invalid, page) }

var testIndex = fakeFields{
	"page-1": {"metadata.title", "metadata.resource_type"},
	"page-2": {"metadata.publisher"},
	"page-3": {},
}

func newController(t *testing.T, errs fakeErrors, opts ...Option) (*Controller, *fakeToucher, *fakeFocus) {
	t.Helper()
	toucher := &fakeToucher{}
	focus := &fakeFocus{}
	c, err := New(pages, toucher, errs, testIndex, append([]Option{WithFocuser(focus)}, opts...)...)
	require.NoError(t, err)
	return c, toucher, focus
}

func historyAt(t *testing.T, raw string) *URLHistory {
	t.Helper()
	h, err := ParseURLHistory(raw)
	require.NoError(t, err)
	return h
}

func TestNew_NoPages(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	require.ErrorIs(t, err, layout.ErrNoPages)
}

func TestNew_InitialPage(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want layout.PageID
	}{
		{"no parameter", "/uploads/new", "page-1"},
		{"known page", "/uploads/new?depositFormPage=page-3", "page-3"},
		{"unknown page", "/uploads/new?depositFormPage=page-9", "page-1"},
		{"empty parameter", "/uploads/new?depositFormPage=", "page-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newController(t, nil, WithHistory(historyAt(t, tt.url)))
			require.Equal(t, tt.want, c.Current())
			require.Equal(t, State{Current: tt.want}, c.State())
		})
	}
}

func TestRequestNavigate_CleanPageCommits(t *testing.T) {
	c, toucher, focus := newController(t, fakeErrors{})

	out, err := c.RequestNavigate("page-2")
	require.NoError(t, err)
	require.Equal(t, Committed, out)
	require.Equal(t, "page-2", string(c.Current()))
	require.Equal(t, [][]string{{"metadata.title", "metadata.resource_type"}}, toucher.touched)
	require.Zero(t, focus.confirm)

	p, ok := PageFromURL(c.History().Current().URL)
	require.True(t, ok)
	require.Equal(t, layout.PageID("page-2"), p)
	require.False(t, c.History().Current().Synthetic)
}

func TestRequestNavigate_PageWithErrorsConfirms(t *testing.T) {
	errs := fakeErrors{"page-1": {"metadata.title"}}
	c, toucher, focus := newController(t, errs)

	out, err := c.RequestNavigate("page-3")
	require.NoError(t, err)
	require.Equal(t, Confirming, out)
	require.Equal(t, State{Current: "page-1", Pending: "page-3", Confirming: true}, c.State())
	require.Len(t, toucher.touched, 1)
	require.Equal(t, 1, focus.confirm)
}

func TestRequestNavigate_WhileConfirmingCommits(t *testing.T) {
	c, _, _ := newController(t, fakeErrors{"page-1": {"metadata.title"}})

	_, err := c.RequestNavigate("page-3")
	require.NoError(t, err)
	out, err := c.RequestNavigate("page-2")
	require.NoError(t, err)
	require.Equal(t, Committed, out)
	require.Equal(t, State{Current: "page-2"}, c.State())
}

func TestRequestNavigate_UnknownPage(t *testing.T) {
	c, toucher, _ := newController(t, fakeErrors{})

	_, err := c.RequestNavigate("page-9")
	require.ErrorIs(t, err, ErrUnknownPage)
	require.Equal(t, layout.PageID("page-1"), c.Current())
	require.Empty(t, toucher.touched)
}

func TestCancelConfirm(t *testing.T) {
	c, _, focus := newController(t, fakeErrors{"page-1": {"metadata.title"}})
	_, err := c.RequestNavigate("page-2")
	require.NoError(t, err)

	c.CancelConfirm()
	require.Equal(t, State{Current: "page-1"}, c.State())
	require.Equal(t, []layout.PageID{"page-1"}, focus.invalid)
}

func TestProceedConfirm(t *testing.T) {
	c, _, _ := newController(t, fakeErrors{"page-1": {"metadata.title"}})
	before := c.History().(*URLHistory).Len()
	_, err := c.RequestNavigate("page-2")
	require.NoError(t, err)

	require.True(t, c.ProceedConfirm())
	require.Equal(t, State{Current: "page-2"}, c.State())
	require.Equal(t, before+1, c.History().(*URLHistory).Len())

	require.False(t, c.ProceedConfirm(), "nothing held")
	require.Equal(t, layout.PageID("page-2"), c.Current())
}

func TestNextPrevious(t *testing.T) {
	c, _, _ := newController(t, fakeErrors{})

	_, ok := c.Previous()
	require.False(t, ok)
	next, ok := c.Next()
	require.True(t, ok)
	require.Equal(t, layout.PageID("page-2"), next)

	c.Commit("page-3")
	_, ok = c.Next()
	require.False(t, ok)
	prev, ok := c.Previous()
	require.True(t, ok)
	require.Equal(t, layout.PageID("page-2"), prev)
}

func TestMount_PushesOneSyntheticEntry(t *testing.T) {
	h := historyAt(t, "https://works.example.org/uploads/new?depositFormPage=page-2&community=kc")
	c, _, _ := newController(t, fakeErrors{}, WithHistory(h))

	c.Mount()
	c.Mount()
	require.Equal(t, 2, h.Len())
	cur := h.Current()
	require.True(t, cur.Synthetic)
	require.Equal(t, "kc", cur.URL.Query().Get("community"))
	require.Equal(t, layout.PageID("page-2"), c.Current())

	// One external back stays inside the form.
	require.True(t, h.Back())
	c.PopState()
	require.Equal(t, layout.PageID("page-2"), c.Current())
}

func TestUnmount_DropsSyntheticEntryWhenCurrent(t *testing.T) {
	h := historyAt(t, "/uploads/new")
	c, _, _ := newController(t, fakeErrors{}, WithHistory(h))
	c.Mount()

	c.Unmount()
	require.False(t, h.Current().Synthetic)
	_, ok := PageFromURL(h.Current().URL)
	require.False(t, ok)
}

func TestUnmount_KeepsCommittedEntries(t *testing.T) {
	h := historyAt(t, "/uploads/new")
	c, _, _ := newController(t, fakeErrors{}, WithHistory(h))
	c.Mount()
	c.Commit("page-2")

	c.Unmount()
	p, _ := PageFromURL(h.Current().URL)
	require.Equal(t, layout.PageID("page-2"), p)
}

func TestPopState_MirrorsHistory(t *testing.T) {
	h := historyAt(t, "/uploads/new")
	c, _, _ := newController(t, fakeErrors{"page-2": {"metadata.publisher"}}, WithHistory(h))
	c.Mount()
	c.Commit("page-2")
	c.Commit("page-3")

	require.True(t, h.Back())
	c.PopState()
	require.Equal(t, layout.PageID("page-2"), c.Current())

	_, err := c.RequestNavigate("page-3")
	require.NoError(t, err)
	require.True(t, c.State().Confirming)

	require.True(t, h.Forward())
	c.PopState()
	require.Equal(t, State{Current: "page-3"}, c.State())
}

func TestPopState_UnknownPageKeepsCurrent(t *testing.T) {
	h := historyAt(t, "/uploads/new")
	c, _, _ := newController(t, fakeErrors{}, WithHistory(h))
	c.Commit("page-3")
	h.Push(&url.URL{Path: "/elsewhere"}, false)

	c.PopState()
	require.Equal(t, layout.PageID("page-3"), c.Current())
}

func TestController_WithReconciler(t *testing.T) {
	testPages := []layout.Page{{ID: "page-1"}, {ID: "page-2"}, {ID: "page-3"}}
	ix := resolver.Index{
		"page-1": {"metadata.title"},
		"page-2": {"metadata.publisher"},
		"page-3": {},
	}
	s := store.New(
		tree.Tree{"metadata": tree.Tree{"title": "On Sparrows", "publisher": ""}},
		tree.Tree{"metadata": tree.Tree{"publisher": "Publisher is required"}},
		nil,
	)
	defer s.Close()
	rc := reconcile.NewController(s, testPages, ix)
	rc.Sync(context.Background())

	c, err := New(pages, s, rc, rc, WithHistory(historyAt(t, "/?depositFormPage=page-2")))
	require.NoError(t, err)

	out, err := c.RequestNavigate("page-3")
	require.NoError(t, err)
	require.Equal(t, Confirming, out)
	require.True(t, s.Touched("metadata.publisher"))

	require.True(t, c.ProceedConfirm())
	require.Equal(t, layout.PageID("page-3"), c.Current())

	out, err = c.RequestNavigate("page-1")
	require.NoError(t, err)
	require.Equal(t, Committed, out)
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "committed", Committed.String())
	require.Equal(t, "confirming", Confirming.String())
}
