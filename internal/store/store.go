// Package store holds the single logical owner of the form state: current
// values, current errors, touched flags, and the initial value and error
// snapshots from the last server round-trip.
//
// Every value change re-runs the Validator synchronously, replacing the
// current errors. Every mutation bumps the version and is published on the
// store's broker after the lock is released.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/pubsub"
	"github.com/zjrosen/depositform/internal/tree"
)

// Validator computes the client-side error tree for a set of values.
type Validator interface {
	Validate(values tree.Tree) tree.Tree
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(values tree.Tree) tree.Tree

// Validate implements Validator.
func (f ValidatorFunc) Validate(values tree.Tree) tree.Tree { return f(values) }

// Change describes one store mutation.
type Change struct {
	Paths   []string
	Version uint64
}

// MergeChanges folds two change events into one. A nil path list means the
// whole record changed, so it absorbs any specific paths.
func MergeChanges(earlier, later pubsub.Event[Change]) pubsub.Event[Change] {
	merged := later
	switch {
	case earlier.Payload.Paths == nil || later.Payload.Paths == nil:
		merged.Payload.Paths = nil
	default:
		paths := append([]string(nil), earlier.Payload.Paths...)
		for _, p := range later.Payload.Paths {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
		merged.Payload.Paths = paths
	}
	if earlier.Type != later.Type {
		merged.Type = later.Type
	}
	return merged
}

// Snapshot is a consistent deep copy of the store state.
type Snapshot struct {
	Values        tree.Tree
	Errors        tree.Tree
	Touched       tree.Tree
	InitialValues tree.Tree
	InitialErrors tree.Tree
	Version       uint64
}

// Store is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	values        tree.Tree
	errors        tree.Tree
	touched       tree.Tree
	initialValues tree.Tree
	initialErrors tree.Tree
	version       uint64

	validator Validator
	broker    *pubsub.Broker[Change]
}

// New creates a store seeded with the record's values and the errors the
// server returned with it. A nil validator reports no client errors.
func New(initialValues, initialErrors tree.Tree, v Validator) *Store {
	if v == nil {
		v = ValidatorFunc(func(tree.Tree) tree.Tree { return tree.Tree{} })
	}
	s := &Store{
		values:        tree.Clone(initialValues),
		touched:       tree.Tree{},
		initialValues: tree.Clone(initialValues),
		initialErrors: tree.Clone(initialErrors),
		validator:     v,
		broker:        pubsub.NewBroker[Change](),
	}
	s.errors = s.validate()
	return s
}

// Subscribe returns a channel of store changes of the given kinds, or of
// every kind when none are given. It is closed when ctx is done.
func (s *Store) Subscribe(ctx context.Context, kinds ...pubsub.EventType) <-chan pubsub.Event[Change] {
	return s.broker.Subscribe(ctx, kinds...)
}

// Close shuts down the change broker.
func (s *Store) Close() {
	s.broker.Close()
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns deep copies of all five trees taken under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Values:        tree.Clone(s.values),
		Errors:        tree.Clone(s.errors),
		Touched:       tree.Clone(s.touched),
		InitialValues: tree.Clone(s.initialValues),
		InitialErrors: tree.Clone(s.initialErrors),
		Version:       s.version,
	}
}

// Value returns the current value at path.
func (s *Store) Value(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.Get(s.values, path)
}

// Error returns the current error message at path, or "".
func (s *Store) Error(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.String(s.errors, path)
}

// Touched reports whether path is touched directly or through an ancestor.
func (s *Store) Touched(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.IsTouched(s.touched, path)
}

// SetFieldValue writes v at path and revalidates.
func (s *Store) SetFieldValue(path string, v any) {
	s.mutate(pubsub.ValuesChanged, []string{path}, func() {
		s.values = tree.Set(s.values, path, v)
		s.errors = s.validate()
	})
}

// SetValues replaces all values and revalidates.
func (s *Store) SetValues(values tree.Tree) {
	s.mutate(pubsub.ValuesChanged, nil, func() {
		s.values = tree.Clone(values)
		s.errors = s.validate()
	})
}

// SetFieldTouched marks path touched or untouched.
func (s *Store) SetFieldTouched(path string, touched bool) {
	s.mutate(pubsub.TouchedChanged, []string{path}, func() {
		s.touched = tree.Set(s.touched, path, touched)
	})
}

// TouchAll marks every path touched in one mutation.
func (s *Store) TouchAll(paths []string) {
	if len(paths) == 0 {
		return
	}
	s.mutate(pubsub.TouchedChanged, paths, func() {
		for _, p := range paths {
			s.touched = tree.Set(s.touched, p, true)
		}
	})
}

// SetFieldError writes msg into the current errors at path. An empty msg
// clears the error.
func (s *Store) SetFieldError(path, msg string) {
	s.mutate(pubsub.ErrorsChanged, []string{path}, func() {
		if msg == "" {
			tree.Delete(s.errors, path)
			return
		}
		s.errors = tree.Set(s.errors, path, msg)
	})
}

// Write is one corrective store update.
type Write struct {
	Path    string
	Message string
	Touch   bool
}

// ApplyWrites applies a batch of error writes and touch flags as a single
// mutation.
func (s *Store) ApplyWrites(writes []Write) {
	if len(writes) == 0 {
		return
	}
	paths := make([]string, len(writes))
	for i, w := range writes {
		paths[i] = w.Path
	}
	s.mutate(pubsub.ErrorsChanged, paths, func() {
		for _, w := range writes {
			s.errors = tree.Set(s.errors, w.Path, w.Message)
			if w.Touch {
				s.touched = tree.Set(s.touched, w.Path, true)
			}
		}
	})
}

// ApplyServerResponse reinitializes the form from a server round-trip. The
// initial snapshots are replaced wholesale, values are reset to the saved
// record and touched state is cleared. A nil values tree keeps the current
// values as the new initial values.
func (s *Store) ApplyServerResponse(values, errs tree.Tree) {
	s.mutate(pubsub.ServerResponded, nil, func() {
		if values != nil {
			s.values = tree.Clone(values)
		}
		s.initialValues = tree.Clone(s.values)
		s.initialErrors = tree.Clone(errs)
		s.touched = tree.Tree{}
		s.errors = s.validate()
	})
}

// ReplaceDraft swaps in values recovered from a local draft. The draft
// becomes both the current and the initial values; the initial errors are
// kept.
func (s *Store) ReplaceDraft(values tree.Tree) {
	s.mutate(pubsub.DraftReplaced, nil, func() {
		s.values = tree.Clone(values)
		s.initialValues = tree.Clone(values)
		s.errors = s.validate()
	})
}

func (s *Store) mutate(kind pubsub.EventType, paths []string, fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	version := s.version
	s.mu.Unlock()

	log.Debug(log.CatStore, "Store changed", "kind", kind, "paths", len(paths), "version", version)
	s.broker.Publish(kind, Change{Paths: paths, Version: version})
}

// validate must be called with mu held.
func (s *Store) validate() tree.Tree {
	errs := s.validator.Validate(tree.Clone(s.values))
	if errs == nil {
		return tree.Tree{}
	}
	return errs
}
