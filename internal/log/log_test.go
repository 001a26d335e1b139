package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 10, 45, 0, 0, time.UTC)
	install(&Logger{w: &buf, now: func() time.Time { return at }})
	t.Cleanup(func() { install(nil) })
	return &buf
}

func TestWrite_Format(t *testing.T) {
	buf := capture(t)

	Warn(CatReconcile, "Reconcile did not settle", "passes", 8)
	require.Equal(t, "2026-01-02T10:45:00 [WARN] [reconcile] Reconcile did not settle passes=8\n", buf.String())
}

func TestWrite_QuotesAndOrphans(t *testing.T) {
	buf := capture(t)

	Info(CatSubmit, "Request done", "message", "Validation failed", "empty", "", "orphan")
	require.Contains(t, buf.String(), `message="Validation failed" empty="" orphan=<missing>`)
}

func TestErrorErr(t *testing.T) {
	buf := capture(t)

	ErrorErr(CatDraft, "Autosave failed", errors.New("disk full"), "key", "u1/new")
	ErrorErr(CatDraft, "Odd call", nil)
	require.Contains(t, buf.String(), `key=u1/new error="disk full"`)
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestMinLevelAndCategories(t *testing.T) {
	buf := capture(t)

	SetMinLevel(LevelInfo)
	Debug(CatStore, "dropped")
	Info(CatStore, "kept")

	SetCategories(CatNav)
	Info(CatStore, "filtered")
	Info(CatNav, "navigated")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.NotContains(t, out, "filtered")
	require.Contains(t, out, "kept")
	require.Contains(t, out, "navigated")
}

func TestInitFromEnv(t *testing.T) {
	buf := capture(t)
	t.Setenv("DEPOSITFORM_LOG_LEVEL", "warning")
	t.Setenv("DEPOSITFORM_LOG_CATEGORIES", "draft, submit")
	require.NoError(t, InitFromEnv())

	Info(CatDraft, "too quiet")
	Warn(CatNav, "wrong category")
	Warn(CatSubmit, "kept")
	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))

	t.Setenv("DEPOSITFORM_LOG_LEVEL", "loud")
	require.Error(t, InitFromEnv())
}

func TestDisabled(t *testing.T) {
	InitWriter(nil)
	require.NotPanics(t, func() { Info(CatUI, "nowhere") })
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"DEBUG": LevelDebug, "info": LevelInfo, " warn ": LevelWarn, "Error": LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("")
	require.Error(t, err)
	require.Equal(t, "UNKNOWN", Level(9).String())
}
