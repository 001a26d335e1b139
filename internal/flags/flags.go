// Package flags holds the form's feature switches. A Registry is read-only
// once built; unknown names read as off.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/depositform/internal/log"
)

const (
	// FlagDraftRecovery offers a locally stored draft for recovery when the
	// form opens.
	FlagDraftRecovery = "draft-recovery"

	// FlagRemoteVocabulary fetches resource types from the repository
	// instead of the layout file.
	FlagRemoteVocabulary = "remote-vocabulary"

	// FlagAutosave saves changed values as a local draft while editing.
	FlagAutosave = "autosave"
)

var known = []string{FlagAutosave, FlagDraftRecovery, FlagRemoteVocabulary}

// Defaults returns the shipped flag values.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagDraftRecovery:    true,
		FlagRemoteVocabulary: true,
		FlagAutosave:         true,
	}
}

// Known returns the flag names the form reads, sorted.
func Known() []string {
	return slices.Clone(known)
}

// Registry holds flag state.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. Names the form never reads are
// kept but logged, since they are usually typos.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: make(map[string]bool, len(flags))}
	maps.Copy(r.flags, flags)
	if unknown := r.Unknown(); len(unknown) > 0 {
		log.Warn(log.CatConfig, "Unknown feature flags in config", "flags", unknown)
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "flags", r.All())
	return r
}

// With returns a copy of r with overrides applied.
func (r *Registry) With(overrides map[string]bool) *Registry {
	next := &Registry{flags: r.All()}
	maps.Copy(next.flags, overrides)
	return next
}

// Enabled reports whether the named flag is on. Unknown names and a nil
// registry read as off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of every flag.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	return maps.Clone(r.flags)
}

// Unknown returns the set names that are not known flags, sorted.
func (r *Registry) Unknown() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name := range r.flags {
		if !slices.Contains(known, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
