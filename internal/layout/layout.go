// Package layout describes the deposit form's pages and the per resource type
// overrides of their field layouts, and loads them from YAML.
package layout

import (
	"github.com/zjrosen/depositform/internal/registry"
)

// PageID identifies a wizard page ("page-1", "page-2", ...).
type PageID string

// ResourceType is an opaque key selecting a layout override.
type ResourceType string

// FieldDescriptor places one field component on a page. A descriptor with
// Subsections is a composite wrapper whose own Component is not rendered as
// a field. A descriptor with SameAs redirects the whole page layout to the
// named resource type's layout.
type FieldDescriptor struct {
	Component   registry.ComponentID `yaml:"component,omitempty"`
	Section     string               `yaml:"section,omitempty"`
	Label       string               `yaml:"label,omitempty"`
	Help        string               `yaml:"help,omitempty"`
	Wrapped     bool                 `yaml:"wrapped,omitempty"`
	SameAs      ResourceType         `yaml:"same_as,omitempty"`
	Props       map[string]any       `yaml:"props,omitempty"`
	Subsections []FieldDescriptor    `yaml:"subsections,omitempty"`
}

// Composite reports whether d wraps nested descriptors.
func (d FieldDescriptor) Composite() bool {
	return len(d.Subsections) > 0
}

// Leaves flattens descriptors depth-first, dropping composite wrappers and
// alias markers.
func Leaves(fields []FieldDescriptor) []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range fields {
		switch {
		case f.Composite():
			out = append(out, Leaves(f.Subsections)...)
		case f.SameAs != "" && f.Component == "":
		default:
			out = append(out, f)
		}
	}
	return out
}

// Page is one wizard step.
type Page struct {
	ID     PageID            `yaml:"id"`
	Label  string            `yaml:"label"`
	Fields []FieldDescriptor `yaml:"fields"`
}

// ResourceTypeOption is a selectable resource type.
type ResourceTypeOption struct {
	ID    ResourceType `yaml:"id"`
	Label string       `yaml:"label"`
}

// FieldsByType maps a resource type to its per-page layout overrides.
type FieldsByType map[ResourceType]map[PageID][]FieldDescriptor

// Layout is the complete form configuration.
type Layout struct {
	Pages         []Page               `yaml:"pages"`
	FieldsByType  FieldsByType         `yaml:"fields_by_type,omitempty"`
	ResourceTypes []ResourceTypeOption `yaml:"resource_types,omitempty"`

	// LabelModifications renames fields per resource type, keyed by the
	// governed value path. An empty label keeps the default.
	LabelModifications map[ResourceType]map[string]string `yaml:"label_modifications,omitempty"`

	// ExtraRequiredFields lists value paths required only for one type.
	ExtraRequiredFields map[ResourceType][]string `yaml:"extra_required_fields,omitempty"`

	// Components registers field components beyond the stock set.
	Components []registry.Entry `yaml:"components,omitempty"`
}

// PageIDs returns the page ids in wizard order.
func (l *Layout) PageIDs() []PageID {
	ids := make([]PageID, len(l.Pages))
	for i, p := range l.Pages {
		ids[i] = p.ID
	}
	return ids
}

// Page returns the page with id.
func (l *Layout) Page(id PageID) (Page, bool) {
	if i := l.PageIndex(id); i >= 0 {
		return l.Pages[i], true
	}
	return Page{}, false
}

// PageIndex returns the wizard position of id, or -1.
func (l *Layout) PageIndex(id PageID) int {
	for i, p := range l.Pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Label returns the label for path under resource type rt, or fallback when
// the type does not rename it.
func (l *Layout) Label(rt ResourceType, path, fallback string) string {
	if mods, ok := l.LabelModifications[rt]; ok {
		if label := mods[path]; label != "" {
			return label
		}
	}
	return fallback
}

// HasResourceType reports whether rt is a declared resource type or has
// layout overrides.
func (l *Layout) HasResourceType(rt ResourceType) bool {
	if _, ok := l.FieldsByType[rt]; ok {
		return true
	}
	for _, o := range l.ResourceTypes {
		if o.ID == rt {
			return true
		}
	}
	return false
}

// Registry returns the stock registry extended with the layout's own
// components.
func (l *Layout) Registry() (*registry.Registry, error) {
	return registry.Default().Extend(l.Components...)
}
