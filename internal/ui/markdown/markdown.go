// Package markdown renders field help text written in markdown.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle removes document margins so help text lines up with the
// field it belongs to.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer wraps glamour and caches rendered snippets; help text is static
// per layout so the same snippet is rendered on every frame.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int

	mu    sync.Mutex
	cache map[string]string
}

// New creates a renderer for style ("dark", "light", or "" for auto
// detection) wrapping at width.
func New(style string, width int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch style {
	case "dark", "light":
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}
	opts = append(opts, glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)))

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width, cache: make(map[string]string)}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output with surrounding
// blank lines trimmed. On a render error the source is returned as is.
func (r *Renderer) Render(md string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if out, ok := r.cache[md]; ok {
		return out
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		out = md
	}
	out = strings.Trim(out, "\n")
	r.cache[md] = out
	return out
}
