// Package resolver derives, for each page, the value paths governed by the
// field components active under the current resource type.
//
// The derived Index is never patched: every Resolve call builds a fresh one,
// so switching the resource type replaces the index wholesale.
package resolver

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/registry"
)

// ErrAliasChain is returned when a same_as redirect lands on a layout that
// redirects again.
var ErrAliasChain = layout.ErrAliasChain

// Index maps each page to the value paths its active fields govern, in
// layout order. Duplicate paths are kept.
type Index map[layout.PageID][]string

// Paths returns every governed path of every page, in page order.
func (ix Index) Paths(pages []layout.Page) []string {
	var out []string
	for _, p := range pages {
		out = append(out, ix[p.ID]...)
	}
	return out
}

// ActiveLayout returns the descriptors rendered on page for resource type
// rt. An override for rt replaces the page's default fields entirely. When
// the first descriptor carries same_as, the layout of the aliased type is
// used instead, falling back to the default fields when that type has no
// override for the page.
func ActiveLayout(rt layout.ResourceType, page layout.Page, byType layout.FieldsByType) ([]layout.FieldDescriptor, error) {
	active := page.Fields
	if override, ok := byType[rt][page.ID]; ok {
		active = override
	}

	if len(active) == 0 || active[0].SameAs == "" {
		return active, nil
	}

	alias := active[0].SameAs
	redirected, ok := byType[alias][page.ID]
	if !ok {
		return page.Fields, nil
	}
	if len(redirected) > 0 && redirected[0].SameAs != "" {
		return nil, fmt.Errorf("type %s page %s: %w: %s -> %s", rt, page.ID, ErrAliasChain, alias, redirected[0].SameAs)
	}
	return redirected, nil
}

// Resolve builds the page field index for rt. Every component missing from
// reg is reported, across all pages, in one aggregated error.
func Resolve(rt layout.ResourceType, pages []layout.Page, byType layout.FieldsByType, reg *registry.Registry) (Index, error) {
	ix := make(Index, len(pages))
	var err error

	for _, p := range pages {
		active, aerr := ActiveLayout(rt, p, byType)
		if aerr != nil {
			err = multierr.Append(err, aerr)
			continue
		}

		paths := []string{}
		for _, f := range layout.Leaves(active) {
			governed, gerr := reg.Governed(f.Component)
			if gerr != nil {
				err = multierr.Append(err, fmt.Errorf("page %s: %w", p.ID, gerr))
				continue
			}
			paths = append(paths, governed...)
		}
		ix[p.ID] = paths
	}

	if err != nil {
		return nil, err
	}

	log.Debug(log.CatResolve, "Resolved page field index", "type", rt, "pages", len(ix))
	return ix, nil
}

// Resolver binds a layout and registry so callers only supply the type.
type Resolver struct {
	layout *layout.Layout
	reg    *registry.Registry
}

// New creates a Resolver for l and reg.
func New(l *layout.Layout, reg *registry.Registry) *Resolver {
	return &Resolver{layout: l, reg: reg}
}

// Resolve builds a fresh index for rt.
func (r *Resolver) Resolve(rt layout.ResourceType) (Index, error) {
	return Resolve(rt, r.layout.Pages, r.layout.FieldsByType, r.reg)
}

// ActiveLayout returns the descriptors of page id under rt.
func (r *Resolver) ActiveLayout(rt layout.ResourceType, id layout.PageID) ([]layout.FieldDescriptor, error) {
	page, ok := r.layout.Page(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", layout.ErrUnknownPage, id)
	}
	return ActiveLayout(rt, page, r.layout.FieldsByType)
}

// Layout returns the bound layout.
func (r *Resolver) Layout() *layout.Layout {
	return r.layout
}

// Registry returns the bound registry.
func (r *Resolver) Registry() *registry.Registry {
	return r.reg
}
