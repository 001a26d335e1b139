package layout

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/depositform/internal/log"
)

//go:embed default_layout.yaml
var defaultLayout []byte

// DefaultYAML returns the embedded default layout document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultLayout...)
}

// Default parses the embedded default layout. It panics if the embedded
// document is broken.
func Default() *Layout {
	l, err := Parse(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("embedded layout: %v", err))
	}
	return l
}

// Parse decodes a layout document. Unknown keys are rejected so typos in
// field names surface at load time.
func Parse(data []byte) (*Layout, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var l Layout
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	return &l, nil
}

// Load reads the layout at path, or the embedded default when path is empty.
func Load(path string) (*Layout, error) {
	if path == "" {
		log.Debug(log.CatLayout, "Using embedded layout")
		return Default(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user config
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}

	log.Info(log.CatLayout, "Loaded layout", "path", path, "pages", len(l.Pages), "types", len(l.FieldsByType))
	return l, nil
}
