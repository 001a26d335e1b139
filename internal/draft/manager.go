package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/tree"
)

// Manager runs draft recovery for one record.
//
// At mount, Check looks for a stored draft that differs from the loaded
// values. Until the user has answered (or no draft was found), nothing is
// autosaved, so a pending draft is never overwritten by the values it would
// replace.
type Manager struct {
	store  Store
	key    Key
	now    func() time.Time
	tracer trace.Tracer

	mu      sync.Mutex
	asked   bool
	pending *Draft
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTracer sets the tracer for draft spans.
func WithTracer(t trace.Tracer) ManagerOption {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithClock overrides the save timestamp source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager for key backed by s.
func NewManager(s Store, key Key, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  s,
		key:    key,
		now:    time.Now,
		tracer: noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the draft key.
func (m *Manager) Key() Key {
	return m.key
}

// Asked reports whether recovery has been settled for this session.
func (m *Manager) Asked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asked
}

// Pending returns the draft awaiting a decision, if any.
func (m *Manager) Pending() (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Draft{}, false
	}
	return *m.pending, true
}

// Check loads the stored draft and holds it for a decision when it differs
// from values. Otherwise recovery is settled immediately. Check runs once;
// later calls return the held draft.
func (m *Manager) Check(ctx context.Context, values tree.Tree) (Draft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.asked {
		return Draft{}, false, nil
	}
	if m.pending != nil {
		return *m.pending, true, nil
	}

	ctx, span := m.tracer.Start(ctx, tracing.SpanPrefixDraft+"check",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(tracing.AttrDraftKey, m.key.String())),
	)
	defer span.End()

	d, err := m.store.Load(ctx, m.key)
	switch {
	case errors.Is(err, ErrNotFound):
		m.asked = true
		span.SetAttributes(attribute.String(tracing.AttrDraftOutcome, "none"))
		span.SetStatus(codes.Ok, "")
		return Draft{}, false, nil
	case err != nil:
		m.asked = true
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Draft{}, false, fmt.Errorf("load draft %s: %w", m.key, err)
	}

	if !Differs(d.Values, values) {
		m.asked = true
		span.SetAttributes(attribute.String(tracing.AttrDraftOutcome, "same"))
		span.SetStatus(codes.Ok, "")
		return Draft{}, false, nil
	}

	m.pending = &d
	span.AddEvent(tracing.EventDraftFound)
	span.SetAttributes(attribute.String(tracing.AttrDraftOutcome, "pending"))
	span.SetStatus(codes.Ok, "")
	log.Info(log.CatDraft, "Found local draft", "key", m.key.String(), "saved_at", d.SavedAt)
	return d, true, nil
}

// Resolve settles recovery. With restore the held draft's values are
// returned for the store to swap in. The stored draft is deleted either way.
func (m *Manager) Resolve(ctx context.Context, restore bool) (tree.Tree, bool, error) {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.asked = true
	m.mu.Unlock()

	_, span := m.tracer.Start(ctx, tracing.SpanPrefixDraft+"resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(tracing.AttrDraftKey, m.key.String()),
			attribute.Bool("draft.restore", restore),
		),
	)
	defer span.End()

	if err := m.store.Delete(ctx, m.key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("delete draft %s: %w", m.key, err)
	}
	span.SetStatus(codes.Ok, "")

	if !restore || pending == nil {
		log.Debug(log.CatDraft, "Draft discarded", "key", m.key.String())
		return nil, false, nil
	}
	log.Info(log.CatDraft, "Draft recovered", "key", m.key.String())
	return tree.Clone(pending.Values), true, nil
}

// Autosave stores values when recovery is settled and values differ from
// initial. It reports whether a draft was written.
func (m *Manager) Autosave(ctx context.Context, initial, values tree.Tree) (bool, error) {
	if !m.Asked() || !Changed(initial, values) {
		return false, nil
	}
	d := Draft{Key: m.key, Values: tree.Clone(values), SavedAt: m.now()}
	if err := m.store.Save(ctx, d); err != nil {
		log.ErrorErr(log.CatDraft, "Autosave failed", err, "key", m.key.String())
		return false, fmt.Errorf("save draft %s: %w", m.key, err)
	}
	log.Debug(log.CatDraft, "Draft autosaved", "key", m.key.String())
	return true, nil
}

// Discard deletes the stored draft, for example after a successful save to
// the server.
func (m *Manager) Discard(ctx context.Context) error {
	if err := m.store.Delete(ctx, m.key); err != nil {
		return fmt.Errorf("delete draft %s: %w", m.key, err)
	}
	return nil
}
