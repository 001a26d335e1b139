package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/tree"
)

var testKey = Key{UserID: "7", RecordID: "rec-1"}

type failingStore struct{ err error }

func (f failingStore) Save(context.Context, Draft) error { return f.err }
func (f failingStore) Load(context.Context, Key) (Draft, error) { return Draft{}, f.err }
func (f failingStore) Delete(context.Context, Key) error { return f.err }

func serverValues() tree.Tree {
	return tree.Tree{"metadata": tree.Tree{"title": "On Sparrows", "resource_type": "textDocument-journalArticle"}}
}

func seeded(t *testing.T, values tree.Tree) *CacheStore {
	t.Helper()
	s := NewCacheStore()
	require.NoError(t, s.Save(context.Background(), Draft{Key: testKey, Values: values}))
	return s
}

func TestCheck_NoDraftSettles(t *testing.T) {
	m := NewManager(NewCacheStore(), testKey)

	_, found, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, m.Asked())
}

func TestCheck_SameDraftSettles(t *testing.T) {
	stored := serverValues()
	tree.Set(stored, "metadata.resource_type", "textDocument-book")
	m := NewManager(seeded(t, stored), testKey)

	_, found, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, m.Asked())
}

func TestCheck_DifferentDraftIsHeld(t *testing.T) {
	stored := serverValues()
	tree.Set(stored, "metadata.title", "On Finches")
	m := NewManager(seeded(t, stored), testKey)

	d, found, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "On Finches", tree.String(d.Values, "metadata.title"))
	require.False(t, m.Asked())

	again, found, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, d, again)
}

func TestCheck_StoreError(t *testing.T) {
	m := NewManager(failingStore{err: errors.New("disk I/O error")}, testKey)
	_, _, err := m.Check(context.Background(), serverValues())
	require.ErrorContains(t, err, "disk I/O error")
	require.True(t, m.Asked(), "a broken store does not block autosave forever")
}

func TestResolve_Recover(t *testing.T) {
	stored := serverValues()
	tree.Set(stored, "metadata.title", "On Finches")
	s := seeded(t, stored)
	m := NewManager(s, testKey)
	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)

	values, ok, err := m.Resolve(context.Background(), true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "On Finches", tree.String(values, "metadata.title"))
	require.True(t, m.Asked())
	_, pending := m.Pending()
	require.False(t, pending)

	_, err = s.Load(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_DeclineDeletes(t *testing.T) {
	stored := serverValues()
	tree.Set(stored, "metadata.title", "On Finches")
	s := seeded(t, stored)
	m := NewManager(s, testKey)
	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)

	values, ok, err := m.Resolve(context.Background(), false)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, values)

	_, err = s.Load(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAutosave_WaitsForRecovery(t *testing.T) {
	stored := serverValues()
	tree.Set(stored, "metadata.title", "On Finches")
	s := seeded(t, stored)
	m := NewManager(s, testKey)
	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)

	typed := serverValues()
	tree.Set(typed, "metadata.title", "Typed")
	saved, err := m.Autosave(context.Background(), serverValues(), typed)
	require.NoError(t, err)
	require.False(t, saved)

	d, err := s.Load(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, "On Finches", tree.String(d.Values, "metadata.title"))
}

func TestAutosave(t *testing.T) {
	s := NewCacheStore()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(s, testKey, WithClock(func() time.Time { return at }))
	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)

	uiOnly := serverValues()
	tree.Set(uiOnly, "ui.publication_date_l10n", "2024")
	saved, err := m.Autosave(context.Background(), serverValues(), uiOnly)
	require.NoError(t, err)
	require.False(t, saved)

	typed := serverValues()
	tree.Set(typed, "metadata.title", "Typed")
	saved, err = m.Autosave(context.Background(), serverValues(), typed)
	require.NoError(t, err)
	require.True(t, saved)

	d, err := s.Load(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, "Typed", tree.String(d.Values, "metadata.title"))
	require.Equal(t, at, d.SavedAt)

	require.NoError(t, m.Discard(context.Background()))
	_, err = s.Load(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAutosave_StoreError(t *testing.T) {
	m := NewManager(failingStore{err: ErrNotFound}, testKey)
	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)

	m.store = failingStore{err: errors.New("read-only database")}
	typed := tree.Tree{"metadata": tree.Tree{"title": "x"}}
	_, err = m.Autosave(context.Background(), tree.Tree{}, typed)
	require.ErrorContains(t, err, "read-only database")
}

func TestManager_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	stored := serverValues()
	tree.Set(stored, "metadata.title", "On Finches")
	m := NewManager(seeded(t, stored), testKey, WithTracer(tp.Tracer("test")))

	_, _, err := m.Check(context.Background(), serverValues())
	require.NoError(t, err)
	_, _, err = m.Resolve(context.Background(), true)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, tracing.SpanPrefixDraft+"check", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)
	require.Equal(t, tracing.EventDraftFound, spans[0].Events()[0].Name)
	require.Equal(t, tracing.SpanPrefixDraft+"resolve", spans[1].Name())
}
