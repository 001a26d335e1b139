package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd waits for the next event on ch and returns it as a tea.Msg.
// It returns nil once ctx is done or ch is closed.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			return event
		}
	}
}

// MergeFunc folds a later event into an earlier one.
type MergeFunc[T any] func(earlier, later Event[T]) Event[T]

// ContinuousListener keeps one subscription open across Update calls.
type ContinuousListener[T any] struct {
	ctx   context.Context
	ch    <-chan Event[T]
	types []EventType
	merge MergeFunc[T]
}

// ListenerOption configures a ContinuousListener.
type ListenerOption[T any] func(*ContinuousListener[T])

// WithMerge makes Listen fold every event already queued behind the first
// one into a single message, so a burst of changes costs one Update.
func WithMerge[T any](fn MergeFunc[T]) ListenerOption[T] {
	return func(l *ContinuousListener[T]) {
		l.merge = fn
	}
}

// WithTypes limits the subscription to the given event types.
func WithTypes[T any](types ...EventType) ListenerOption[T] {
	return func(l *ContinuousListener[T]) {
		l.types = types
	}
}

// NewContinuousListener subscribes to s. The subscription ends with ctx.
func NewContinuousListener[T any](ctx context.Context, s Subscriber[T], opts ...ListenerOption[T]) *ContinuousListener[T] {
	l := &ContinuousListener[T]{ctx: ctx}
	for _, o := range opts {
		o(l)
	}
	l.ch = s.Subscribe(ctx, l.types...)
	return l
}

// Listen returns a tea.Cmd for the next event. Call it again after handling
// each event.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	if l.merge == nil {
		return ListenCmd(l.ctx, l.ch)
	}
	return func() tea.Msg {
		var first Event[T]
		select {
		case <-l.ctx.Done():
			return nil
		case ev, ok := <-l.ch:
			if !ok {
				return nil
			}
			first = ev
		}
		for {
			select {
			case ev, ok := <-l.ch:
				if !ok {
					return first
				}
				first = l.merge(first, ev)
			default:
				return first
			}
		}
	}
}
