package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/nav"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/submit"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/validation"
)

// form is a validated layout and the registry it was checked against.
type form struct {
	Layout   *layout.Layout
	Registry *registry.Registry
}

// loadLayout loads the configured layout, registers the layout's and the
// config's components, and validates the result.
func loadLayout(cfg config.Config) (form, error) {
	l, err := layout.Load(cfg.Layout.Path)
	if err != nil {
		return form{}, err
	}
	reg, err := l.Registry()
	if err != nil {
		return form{}, fmt.Errorf("registering layout components: %w", err)
	}
	if len(cfg.Layout.Components) > 0 {
		if reg, err = reg.Extend(cfg.Layout.Components...); err != nil {
			return form{}, fmt.Errorf("registering configured components: %w", err)
		}
	}
	if err := layout.Validate(l, reg); err != nil {
		return form{}, err
	}
	return form{Layout: l, Registry: reg}, nil
}

func newValidator(cfg config.Config, l *layout.Layout) (*validation.Validator, error) {
	rules := cfg.Validation.Rules
	if len(rules) == 0 {
		rules = validation.DefaultRules()
	}
	v, err := validation.New(rules, l.ExtraRequiredFields)
	if err != nil {
		return nil, fmt.Errorf("building validator: %w", err)
	}
	return v, nil
}

// recordFile is the on-disk shape of a record with server errors. A file
// without a values key holds the values alone.
type recordFile struct {
	Values map[string]any      `yaml:"values"`
	Errors []submit.FieldError `yaml:"errors"`
}

// loadRecord reads record values and server errors from a YAML or JSON file.
// An empty path yields an empty record.
func loadRecord(p string) (values, errs tree.Tree, err error) {
	if p == "" {
		return tree.Tree{}, tree.Tree{}, nil
	}
	data, err := os.ReadFile(p) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, nil, fmt.Errorf("reading record: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing record %s: %w", p, err)
	}
	if _, ok := raw["values"]; !ok {
		if raw == nil {
			raw = tree.Tree{}
		}
		return raw, tree.Tree{}, nil
	}

	var rf recordFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, fmt.Errorf("parsing record %s: %w", p, err)
	}
	if rf.Values == nil {
		rf.Values = tree.Tree{}
	}
	return rf.Values, submit.ErrorTree(rf.Errors), nil
}

// startURL is the location the form opens at.
func startURL(recordID string, page layout.PageID) *url.URL {
	u := &url.URL{Path: "/uploads/new"}
	if recordID != "" {
		u.Path = path.Join("/uploads", recordID)
	}
	if page != "" {
		return nav.PageURL(u, page)
	}
	return u
}
