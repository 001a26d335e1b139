// Package reconcile merges fresh client errors, touched state and the last
// server validation snapshot into per-page error views.
//
// A stale server error is resurrected only while the client validator is
// silent about the field (and its ancestors and descendants) and the value
// is still what the server saw. Resurrected errors are written back into the
// store together with a touch flag so the field shows its message.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/resolver"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/tree"
)

// Matching selects how error paths are attributed to governed paths.
type Matching int

const (
	// MatchSegments matches only on whole path segments, so
	// "metadata.title" does not claim "metadata.titles_extra".
	MatchSegments Matching = iota
	// MatchLoose compares raw string prefixes.
	MatchLoose
)

// ParseMatching maps a config value to a Matching mode.
func ParseMatching(s string) (Matching, error) {
	switch strings.ToLower(s) {
	case "", "segments", "segment":
		return MatchSegments, nil
	case "loose":
		return MatchLoose, nil
	}
	return 0, fmt.Errorf("unknown matching mode %q", s)
}

func (m Matching) String() string {
	if m == MatchLoose {
		return "loose"
	}
	return "segments"
}

// Options tune a reconciliation pass.
type Options struct {
	Matching Matching
}

// PageErrors maps a page to the governed paths that matched.
type PageErrors map[layout.PageID][]string

// Has reports whether page is present.
func (pe PageErrors) Has(page layout.PageID) bool {
	return len(pe[page]) > 0
}

// Result is the outcome of one pass.
type Result struct {
	ErrorFields        []string
	TouchedFields      []string
	InitialErrorFields []string

	Untouched []string
	Unchanged []string
	Unflagged []string
	ToFlag    []string

	TouchedErrorFields []string

	// Writes are the corrective store updates for ToFlag.
	Writes []store.Write

	PagesWithErrors        PageErrors
	PagesWithFlaggedErrors PageErrors
}

// Reconcile runs one pass over snap. It does not touch the store.
func Reconcile(pages []layout.Page, ix resolver.Index, snap store.Snapshot, opts Options) Result {
	loose := opts.Matching == MatchLoose

	res := Result{
		ErrorFields:        tree.Leaves(snap.Errors),
		TouchedFields:      tree.Leaves(snap.Touched),
		InitialErrorFields: tree.Leaves(snap.InitialErrors),
	}

	for _, field := range res.InitialErrorFields {
		if !tree.IsTouched(snap.Touched, field) {
			res.Untouched = append(res.Untouched, field)
		}

		if !valueUnchanged(snap, field) {
			res.Unflagged = append(res.Unflagged, field)
			continue
		}
		res.Unchanged = append(res.Unchanged, field)

		if clientSpeaks(snap.Errors, field) {
			continue
		}
		res.ToFlag = append(res.ToFlag, field)
		res.Writes = append(res.Writes, store.Write{
			Path:    field,
			Message: message(snap.InitialErrors, field),
			Touch:   !tree.IsTouched(snap.Touched, field),
		})
	}

	for _, field := range res.ErrorFields {
		if tree.IsTouched(snap.Touched, field) {
			res.TouchedErrorFields = append(res.TouchedErrorFields, field)
		}
	}

	withErrors := union(res.ErrorFields, res.Unchanged)
	flagged := union(res.TouchedErrorFields, res.ToFlag)

	res.PagesWithErrors = PageErrors{}
	res.PagesWithFlaggedErrors = PageErrors{}
	for _, p := range pages {
		if m := matching(ix[p.ID], withErrors, loose); len(m) > 0 {
			res.PagesWithErrors[p.ID] = m
		}
		if m := matching(ix[p.ID], flagged, loose); len(m) > 0 {
			res.PagesWithFlaggedErrors[p.ID] = m
		}
	}

	return res
}

func valueUnchanged(snap store.Snapshot, field string) bool {
	cur, _ := tree.Get(snap.Values, field)
	orig, _ := tree.Get(snap.InitialValues, field)
	return tree.Equal(cur, orig)
}

// clientSpeaks reports whether the current errors hold anything at field,
// above it or beneath it.
func clientSpeaks(errs tree.Tree, field string) bool {
	if v, ok := tree.Get(errs, field); ok && v != nil {
		if _, isMap := v.(map[string]any); !isMap {
			return true
		}
	}
	return tree.LeafAncestor(errs, field) != "" || tree.HasBelow(errs, field)
}

func message(errs tree.Tree, field string) string {
	v, _ := tree.Get(errs, field)
	if items, ok := v.([]any); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	}
	return tree.String(errs, field)
}

// matching returns the governed paths related to any entry of set,
// de-duplicated, in governed order.
func matching(governed, set []string, loose bool) []string {
	var out []string
	seen := make(map[string]bool, len(governed))
	for _, g := range governed {
		if seen[g] || !tree.MatchesAny(g, set, loose) {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
