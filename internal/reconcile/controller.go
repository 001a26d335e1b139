package reconcile

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/resolver"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/tracing"
)

// defaultMaxPasses bounds how often Sync re-runs while its own writes keep
// moving the store version. Two passes settle any input; the rest is slack.
const defaultMaxPasses = 4

// Controller runs reconciliation against a store whenever its inputs move.
type Controller struct {
	store *store.Store
	pages []layout.Page
	opts  Options

	mu          sync.Mutex
	index       resolver.Index
	last        Result
	lastVersion uint64
	valid       bool

	inFlight  atomic.Bool
	maxPasses int
	tracer    trace.Tracer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTracer sets the tracer used for pass spans.
func WithTracer(t trace.Tracer) ControllerOption {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMaxPasses overrides the re-run bound.
func WithMaxPasses(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxPasses = n
		}
	}
}

// WithOptions sets the pass options.
func WithOptions(o Options) ControllerOption {
	return func(c *Controller) {
		c.opts = o
	}
}

// NewController creates a controller for s over pages and ix.
func NewController(s *store.Store, pages []layout.Page, ix resolver.Index, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:     s,
		pages:     pages,
		index:     ix,
		maxPasses: defaultMaxPasses,
		tracer:    noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIndex swaps in a freshly resolved index. The next Sync reconciles even
// if the store has not changed.
func (c *Controller) SetIndex(ix resolver.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = ix
	c.valid = false
}

// Index returns the current page field index.
func (c *Controller) Index() resolver.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Last returns the most recent result.
func (c *Controller) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// PagesWithErrors returns the pages with errors from the most recent pass.
func (c *Controller) PagesWithErrors() PageErrors {
	return c.Last().PagesWithErrors
}

// Sync reconciles until the store stops changing. A call made while another
// Sync is running returns the previous result and false, so the change
// notifications caused by a pass's own writes cannot re-enter it.
func (c *Controller) Sync(ctx context.Context) (Result, bool) {
	if !c.inFlight.CompareAndSwap(false, true) {
		log.Debug(log.CatReconcile, "Sync skipped, pass in flight")
		return c.Last(), false
	}
	defer c.inFlight.Store(false)

	_, span := c.tracer.Start(ctx, tracing.SpanPrefixReconcile+"sync",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	passes := 0
	for ; passes < c.maxPasses; passes++ {
		snap := c.store.Snapshot()
		if c.valid && snap.Version == c.lastVersion {
			break
		}

		res := Reconcile(c.pages, c.index, snap, c.opts)
		c.last = res
		c.lastVersion = snap.Version
		c.valid = true

		if len(res.Writes) == 0 {
			break
		}
		log.Debug(log.CatReconcile, "Applying corrective writes", "count", len(res.Writes), "version", snap.Version)
		c.store.ApplyWrites(res.Writes)
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrReconcilePasses, passes),
		attribute.Int(tracing.AttrPagesWithErrors, len(c.last.PagesWithErrors)),
		attribute.Int(tracing.AttrPagesFlagged, len(c.last.PagesWithFlaggedErrors)),
	)
	if passes == c.maxPasses {
		log.Warn(log.CatReconcile, "Reconcile did not settle", "passes", passes)
		span.SetStatus(codes.Error, "reconcile did not settle")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return c.last, true
}
