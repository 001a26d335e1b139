// Package registry maps field component identifiers to the capability the
// shell renders them with and the value paths they govern.
//
// A Registry is built once from a complete entry list. Duplicate ids and
// undeclared capabilities abort construction, so a lookup miss later on is
// always a layout referring to a component nobody registered.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

var (
	// ErrUnknownComponent is returned when a layout names a component id
	// absent from the registry.
	ErrUnknownComponent = errors.New("unknown field component")

	// ErrDuplicateComponent is returned when two entries share an id.
	ErrDuplicateComponent = errors.New("duplicate field component")

	// ErrUnknownCapability is returned for a capability tag outside the
	// declared set.
	ErrUnknownCapability = errors.New("unknown capability")
)

// ComponentID identifies a field component in layouts.
type ComponentID string

// Entry describes one field component.
type Entry struct {
	ID            ComponentID `yaml:"id" mapstructure:"id"`
	Render        Capability  `yaml:"render" mapstructure:"render"`
	GovernedPaths []string    `yaml:"governed_paths" mapstructure:"governed_paths"`
}

// Registry is an immutable component table.
type Registry struct {
	entries map[ComponentID]Entry
}

// New builds a registry from entries. All construction problems are
// reported together.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[ComponentID]Entry, len(entries))}
	var err error
	for _, e := range entries {
		if e.ID == "" {
			err = multierr.Append(err, fmt.Errorf("%w: empty id", ErrUnknownComponent))
			continue
		}
		if !e.Render.Valid() {
			err = multierr.Append(err, fmt.Errorf("component %s: %w: %d", e.ID, ErrUnknownCapability, int(e.Render)))
			continue
		}
		if _, dup := r.entries[e.ID]; dup {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDuplicateComponent, e.ID))
			continue
		}
		e.GovernedPaths = append([]string(nil), e.GovernedPaths...)
		r.entries[e.ID] = e
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for static tables; it panics on error.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Extend returns a new registry holding r's entries overlaid with extra.
// An extra entry replaces a stock entry of the same id.
func (r *Registry) Extend(extra ...Entry) (*Registry, error) {
	byID := make(map[ComponentID]Entry, len(r.entries)+len(extra))
	for id, e := range r.entries {
		byID[id] = e
	}
	seen := make(map[ComponentID]bool, len(extra))
	var err error
	for _, e := range extra {
		if seen[e.ID] {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDuplicateComponent, e.ID))
			continue
		}
		seen[e.ID] = true
		byID[e.ID] = e
	}
	if err != nil {
		return nil, err
	}
	merged := make([]Entry, 0, len(byID))
	for _, e := range byID {
		merged = append(merged, e)
	}
	return New(merged...)
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id ComponentID) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Governed returns the paths governed by id.
func (r *Registry) Governed(id ComponentID) ([]string, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	return e.GovernedPaths, nil
}

// IDs returns all registered ids, sorted.
func (r *Registry) IDs() []ComponentID {
	ids := make([]ComponentID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.entries)
}
