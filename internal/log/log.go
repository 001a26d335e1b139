// Package log writes structured debug logs for the deposit form. Logging is
// off until InitWithTeaLog or InitWriter is called, which the CLI does for
// --debug or DEPOSITFORM_DEBUG.
//
// Lines look like:
//
//	2026-01-02T10:45:00 [WARN] [reconcile] Reconcile did not settle passes=8
package log

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name, ignoring case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelDebug, fmt.Errorf("unknown log level %q", s)
}

// Category groups related log messages.
type Category string

const (
	CatConfig    Category = "config"    // Configuration loading/saving
	CatLayout    Category = "layout"    // Layout loading, validation and hot reload
	CatResolve   Category = "resolve"   // Page field index derivation
	CatReconcile Category = "reconcile" // Error reconciliation passes and corrective writes
	CatStore     Category = "store"     // Form store mutations
	CatNav       Category = "nav"       // Page navigation and history
	CatDraft     Category = "draft"     // Local draft recovery
	CatSubmit    Category = "submit"    // Remote save/publish calls
	CatUI        Category = "ui"
	CatCache     Category = "cache"
)

// Logger writes formatted entries to one writer.
type Logger struct {
	mu         sync.Mutex
	w          io.Writer
	minLevel   Level
	categories []Category
	now        func() time.Time
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func install(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// InitWithTeaLog opens path through tea.LogToFile and logs there. The
// returned func closes the file and turns logging off.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	install(&Logger{w: f, now: time.Now})
	return func() {
		install(nil)
		_ = f.Close()
	}, nil
}

// InitWriter routes log output to w. A nil w turns logging off.
func InitWriter(w io.Writer) {
	if w == nil {
		install(nil)
		return
	}
	install(&Logger{w: w, now: time.Now})
}

// InitFromEnv applies DEPOSITFORM_LOG_LEVEL and DEPOSITFORM_LOG_CATEGORIES
// (comma separated) to the installed logger.
func InitFromEnv() error {
	if s := os.Getenv("DEPOSITFORM_LOG_LEVEL"); s != "" {
		lvl, err := ParseLevel(s)
		if err != nil {
			return err
		}
		SetMinLevel(lvl)
	}
	if s := os.Getenv("DEPOSITFORM_LOG_CATEGORIES"); s != "" {
		var cats []Category
		for _, c := range strings.Split(s, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cats = append(cats, Category(c))
			}
		}
		SetCategories(cats...)
	}
	return nil
}

// SetMinLevel drops entries below level.
func SetMinLevel(level Level) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// SetCategories keeps only entries of the given categories. With none,
// every category is written.
func SetCategories(cats ...Category) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.categories = slices.Clone(cats)
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields...)
}

// ErrorErr logs at error level with err under the "error" key.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(LevelError, cat, msg, fields...)
}

func write(level Level, cat Category, msg string, fields ...any) {
	l := current()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}
	if len(l.categories) > 0 && !slices.Contains(l.categories, cat) {
		return
	}

	var b strings.Builder
	b.WriteString(l.now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%s", fields[i], formatValue(fields[i+1]))
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(l.w, b.String())
}

// formatValue quotes values that would otherwise break key=value parsing.
func formatValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
