package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/ui/styles"
	"github.com/zjrosen/depositform/internal/validation"
)

// option is one choice of a select field.
type option struct {
	value string
	label string
}

// field is one rendered control. Editable components governing several
// paths are split into one field per path.
type field struct {
	component registry.ComponentID
	render    registry.Capability
	paths     []string
	label     string
	help      string

	input   textinput.Model
	options []option
}

func (f field) path() string {
	if len(f.paths) == 0 {
		return ""
	}
	return f.paths[0]
}

func (f field) isSelect() bool {
	return f.render == registry.CapSelect
}

func (f field) isInput() bool {
	return f.render.Editable() && !f.isSelect() && f.path() != ""
}

// focusable reports whether the field takes keyboard focus.
func (f field) focusable() bool {
	return f.render != registry.CapAction
}

// buildFields lays out the active descriptors of one page.
func buildFields(l *layout.Layout, reg *registry.Registry, rt layout.ResourceType, descs []layout.FieldDescriptor, types []layout.ResourceTypeOption, values tree.Tree, width int) []field {
	var out []field
	for _, d := range layout.Leaves(descs) {
		e, ok := reg.Lookup(d.Component)
		if !ok {
			continue
		}
		base := d.Label
		if base == "" {
			base = componentLabel(d.Component)
		}

		if !e.Render.Editable() || len(e.GovernedPaths) == 0 {
			first := ""
			if len(e.GovernedPaths) > 0 {
				first = e.GovernedPaths[0]
			}
			out = append(out, field{
				component: d.Component,
				render:    e.Render,
				paths:     e.GovernedPaths,
				label:     l.Label(rt, first, base),
				help:      d.Help,
			})
			continue
		}

		for i, p := range e.GovernedPaths {
			label := base
			if i > 0 {
				label = base + ": " + lastSegment(p)
			}
			f := field{
				component: d.Component,
				render:    e.Render,
				paths:     []string{p},
				label:     l.Label(rt, p, label),
				help:      d.Help,
			}
			switch v, _ := tree.Get(values, p); {
			case p == validation.TypePath || e.Render == registry.CapSelect:
				f.render = registry.CapSelect
				f.options = selectOptions(p, d, types)
			case isContainer(v):
				// Structured values are edited elsewhere; show them only.
				f.render = registry.CapDisplay
			default:
				f.input = newInput(e.Render, d, tree.String(values, p), width)
			}
			out = append(out, f)
		}
	}
	return out
}

func newInput(c registry.Capability, d layout.FieldDescriptor, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Width = max(width-6, 10)
	if c == registry.CapDate {
		ti.Placeholder = "YYYY-MM-DD"
	}
	if p, ok := d.Props["placeholder"].(string); ok {
		ti.Placeholder = p
	}
	if n, ok := intProp(d.Props, "max_length"); ok {
		ti.CharLimit = n
	}
	ti.SetValue(value)
	return ti
}

func selectOptions(path string, d layout.FieldDescriptor, types []layout.ResourceTypeOption) []option {
	if path == validation.TypePath {
		out := make([]option, 0, len(types))
		for _, t := range types {
			label := t.Label
			if label == "" {
				label = string(t.ID)
			}
			out = append(out, option{value: string(t.ID), label: label})
		}
		return out
	}

	raw, _ := d.Props["options"].([]any)
	out := make([]option, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, option{value: v, label: v})
		case map[string]any:
			id := fmt.Sprint(v["id"])
			label, _ := v["label"].(string)
			if label == "" {
				label = id
			}
			out = append(out, option{value: id, label: label})
		}
	}
	return out
}

// selected returns the index of the current value among the options, or -1.
func (f field) selected(values tree.Tree) int {
	cur := tree.String(values, f.path())
	if f.path() == validation.TypePath {
		cur = string(validation.ResourceType(values))
	}
	for i, o := range f.options {
		if o.value == cur {
			return i
		}
	}
	return -1
}

// cycle returns the option value delta steps away from the current one.
func (f field) cycle(values tree.Tree, delta int) (string, bool) {
	if len(f.options) == 0 {
		return "", false
	}
	i := f.selected(values)
	switch {
	case i < 0 && delta < 0:
		i = len(f.options) - 1
	case i < 0:
		i = 0
	default:
		i = (i + delta + len(f.options)) % len(f.options)
	}
	return f.options[i].value, true
}

// summary renders a non-editable field's value.
func summary(f field, values tree.Tree) string {
	if f.path() == "" {
		return ""
	}
	v, ok := tree.Get(values, f.path())
	if !ok || v == nil {
		return "Not set"
	}
	switch val := v.(type) {
	case []any:
		switch len(val) {
		case 0:
			return "None"
		case 1:
			return "1 entry"
		}
		return fmt.Sprintf("%d entries", len(val))
	case map[string]any:
		leaves := tree.Leaves(val)
		if len(leaves) == 0 {
			return "Not set"
		}
		parts := make([]string, 0, len(leaves))
		for _, leaf := range leaves {
			parts = append(parts, leaf+": "+tree.String(val, leaf))
		}
		return strings.Join(parts, ", ")
	}
	return tree.String(values, f.path())
}

// firstError returns the first message at or beneath path.
func firstError(errs tree.Tree, path string) string {
	v, ok := tree.Get(errs, path)
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		wrapped := tree.Tree{"_": v}
		for _, leaf := range tree.Leaves(wrapped) {
			if msg := tree.String(wrapped, leaf); msg != "" {
				return msg
			}
		}
		return ""
	}
	return tree.String(errs, path)
}

// counter renders the character counter hint for limited inputs.
func (f field) counter() string {
	if !f.isInput() || f.input.CharLimit <= 0 {
		return ""
	}
	return styles.FormatCounter(f.input.Value(), f.input.CharLimit)
}

func isContainer(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

func componentLabel(id registry.ComponentID) string {
	return strings.TrimSuffix(string(id), "Component")
}

func lastSegment(path string) string {
	segs := tree.Split(path)
	if len(segs) == 0 {
		return path
	}
	return segs[len(segs)-1]
}

func intProp(props map[string]any, key string) (int, bool) {
	switch n := props[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
