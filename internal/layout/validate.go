package layout

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/zjrosen/depositform/internal/registry"
)

var (
	// ErrNoPages is returned for a layout without pages.
	ErrNoPages = errors.New("layout has no pages")

	// ErrDuplicatePage is returned when two pages share an id.
	ErrDuplicatePage = errors.New("duplicate page id")

	// ErrUnknownPage is returned when an override names a page the layout
	// does not declare.
	ErrUnknownPage = errors.New("unknown page")

	// ErrUnknownAlias is returned when same_as names an undeclared type.
	ErrUnknownAlias = errors.New("unknown same_as resource type")

	// ErrAliasChain is returned when same_as redirects to a layout that
	// itself redirects. Aliases resolve a single hop only.
	ErrAliasChain = errors.New("same_as chain")

	// ErrMisplacedAlias is returned when same_as appears anywhere but on
	// the first descriptor of a page layout.
	ErrMisplacedAlias = errors.New("same_as must be the first descriptor")
)

// Validate checks l against reg and reports every problem found.
func Validate(l *Layout, reg *registry.Registry) error {
	var err error

	if len(l.Pages) == 0 {
		err = multierr.Append(err, ErrNoPages)
	}

	pages := make(map[PageID]bool, len(l.Pages))
	for _, p := range l.Pages {
		if pages[p.ID] {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDuplicatePage, p.ID))
		}
		pages[p.ID] = true
		err = multierr.Append(err, checkFields(fmt.Sprintf("page %s", p.ID), p.Fields, reg, false))
	}

	for _, rt := range sortedTypes(l.FieldsByType) {
		for _, pid := range sortedPages(l.FieldsByType[rt]) {
			fields := l.FieldsByType[rt][pid]
			where := fmt.Sprintf("type %s page %s", rt, pid)
			if !pages[pid] {
				err = multierr.Append(err, fmt.Errorf("%s: %w", where, ErrUnknownPage))
			}
			err = multierr.Append(err, checkFields(where, fields, reg, true))
			err = multierr.Append(err, checkAlias(l, where, pid, fields))
		}
	}

	return err
}

func checkAlias(l *Layout, where string, pid PageID, fields []FieldDescriptor) error {
	if len(fields) == 0 || fields[0].SameAs == "" {
		return nil
	}
	target := fields[0].SameAs
	if !l.HasResourceType(target) {
		return fmt.Errorf("%s: %w: %s", where, ErrUnknownAlias, target)
	}
	redirected := l.FieldsByType[target][pid]
	if len(redirected) > 0 && redirected[0].SameAs != "" {
		return fmt.Errorf("%s: %w: %s -> %s", where, ErrAliasChain, target, redirected[0].SameAs)
	}
	return nil
}

// checkFields reports unknown components and misplaced aliases. An alias is
// only allowed on the first top-level descriptor of a type override.
func checkFields(where string, fields []FieldDescriptor, reg *registry.Registry, aliasOK bool) error {
	var err error
	for i, f := range fields {
		if f.SameAs != "" && (!aliasOK || i != 0) {
			err = multierr.Append(err, fmt.Errorf("%s: %w", where, ErrMisplacedAlias))
		}
		if f.Composite() {
			err = multierr.Append(err, checkFields(where, f.Subsections, reg, false))
			continue
		}
		if f.Component == "" {
			continue
		}
		if _, ok := reg.Lookup(f.Component); !ok {
			err = multierr.Append(err, fmt.Errorf("%s: %w: %s", where, registry.ErrUnknownComponent, f.Component))
		}
	}
	return err
}

func sortedTypes(m FieldsByType) []ResourceType {
	out := make([]ResourceType, 0, len(m))
	for rt := range m {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedPages(m map[PageID][]FieldDescriptor) []PageID {
	out := make([]PageID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
