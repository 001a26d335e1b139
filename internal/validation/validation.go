// Package validation is the local rule engine producing the client error
// tree. Rules are keyed by value path; a resource type may add required
// paths of its own.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/tree"
)

// TypePath is where the selected resource type lives in the values.
const TypePath = "metadata.resource_type"

// Rule constrains one value path.
type Rule struct {
	Path      string `mapstructure:"path" yaml:"path"`
	Required  bool   `mapstructure:"required" yaml:"required,omitempty"`
	MinItems  int    `mapstructure:"min_items" yaml:"min_items,omitempty"`
	MaxLength int    `mapstructure:"max_length" yaml:"max_length,omitempty"`
	Pattern   string `mapstructure:"pattern" yaml:"pattern,omitempty"`
	Message   string `mapstructure:"message" yaml:"message,omitempty"`
}

// DefaultRules mirrors the stock deposit form schema.
func DefaultRules() []Rule {
	return []Rule{
		{Path: TypePath, Required: true, Message: "A resource type is required"},
		{Path: "metadata.title", Required: true, MaxLength: 1000, Message: "A title is required"},
		{Path: "metadata.creators", MinItems: 1, Message: "At least one creator must be listed"},
		{Path: "metadata.publication_date", Required: true, Pattern: `^\d{4}(-\d{2}(-\d{2})?)?(/\d{4}(-\d{2}(-\d{2})?)?)?$`, Message: "A publication date is required"},
		{Path: "pids.doi", Pattern: `^(10\.\d{4,9}/\S+)?$`, Message: "DOI must look like 10.1234/abc"},
	}
}

type compiled struct {
	Rule
	re *regexp.Regexp
}

// Validator applies rules to a value tree.
type Validator struct {
	rules []compiled
	extra map[layout.ResourceType][]string
}

// New compiles rules. Bad patterns and rules without a path are reported
// together.
func New(rules []Rule, extraRequired map[layout.ResourceType][]string) (*Validator, error) {
	v := &Validator{extra: extraRequired}
	var err error
	for _, r := range rules {
		if r.Path == "" {
			err = multierr.Append(err, fmt.Errorf("validation rule without path"))
			continue
		}
		c := compiled{Rule: r}
		if r.Pattern != "" {
			re, rerr := regexp.Compile(r.Pattern)
			if rerr != nil {
				err = multierr.Append(err, fmt.Errorf("rule %s: %w", r.Path, rerr))
				continue
			}
			c.re = re
		}
		v.rules = append(v.rules, c)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ForLayout builds the stock validator with l's per-type required paths.
func ForLayout(l *layout.Layout) *Validator {
	v, err := New(DefaultRules(), l.ExtraRequiredFields)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate implements store.Validator.
func (v *Validator) Validate(values tree.Tree) tree.Tree {
	errs := tree.Tree{}
	for _, r := range v.rules {
		if msg := check(r, values); msg != "" {
			tree.Set(errs, r.Path, msg)
		}
	}
	for _, path := range v.extra[ResourceType(values)] {
		if _, set := tree.Get(errs, path); set {
			continue
		}
		if isEmpty(values, path) {
			tree.Set(errs, path, fmt.Sprintf("%s is required", readable(path)))
		}
	}
	return errs
}

// ResourceType reads the selected type, stored either as a bare id or as
// an {id: ...} object.
func ResourceType(values tree.Tree) layout.ResourceType {
	v, ok := tree.Get(values, TypePath)
	if !ok {
		return ""
	}
	switch rt := v.(type) {
	case string:
		return layout.ResourceType(rt)
	case map[string]any:
		if id, ok := rt["id"].(string); ok {
			return layout.ResourceType(id)
		}
	}
	return ""
}

func check(r compiled, values tree.Tree) string {
	v, _ := tree.Get(values, r.Path)

	if r.Required && isEmpty(values, r.Path) {
		return message(r, "is required")
	}
	if r.MinItems > 0 {
		items, _ := v.([]any)
		if len(items) < r.MinItems {
			return message(r, fmt.Sprintf("needs at least %d entries", r.MinItems))
		}
	}
	s, isString := v.(string)
	if !isString {
		return ""
	}
	if r.MaxLength > 0 && utf8.RuneCountInString(s) > r.MaxLength {
		return fmt.Sprintf("%s must be at most %d characters", readable(r.Path), r.MaxLength)
	}
	if r.re != nil && s != "" && !r.re.MatchString(s) {
		return message(r, "is not valid")
	}
	return ""
}

func isEmpty(values tree.Tree, path string) bool {
	v, ok := tree.Get(values, path)
	if !ok || v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(tree.Leaves(val)) == 0
	}
	return false
}

func message(r compiled, fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return readable(r.Path) + " " + fallback
}

// readable turns "custom_fields.journal:journal.title" into "Journal title".
func readable(path string) string {
	segs := tree.Split(path)
	if len(segs) == 0 {
		return path
	}
	last := segs[len(segs)-1]
	if len(segs) > 1 {
		prev := segs[len(segs)-2]
		if i := strings.LastIndex(prev, ":"); i >= 0 {
			last = prev[i+1:] + " " + last
		}
	}
	last = strings.ReplaceAll(last, "_", " ")
	if last == "" {
		return path
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
