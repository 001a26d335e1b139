package pubsub

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

type subscription[T any] struct {
	ch    chan Event[T]
	types []EventType
}

func (s *subscription[T]) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Broker delivers each published event to every interested subscriber.
// Publish never blocks; a subscriber whose buffer is full misses the event.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[*subscription[T]]struct{}
	closed bool

	bufferSize int
	seq        atomic.Uint64
	dropped    atomic.Int64
	now        func() time.Time
}

// BrokerOption configures a Broker.
type BrokerOption func(*brokerConfig)

type brokerConfig struct {
	bufferSize int
	now        func() time.Time
}

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(n int) BrokerOption {
	return func(c *brokerConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithClock sets the event timestamp source.
func WithClock(now func() time.Time) BrokerOption {
	return func(c *brokerConfig) {
		c.now = now
	}
}

// NewBroker creates a broker. Subscribers get a 64 event buffer unless
// WithBufferSize says otherwise.
func NewBroker[T any](opts ...BrokerOption) *Broker[T] {
	cfg := brokerConfig{bufferSize: defaultBufferSize, now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	return &Broker[T]{
		subs:       make(map[*subscription[T]]struct{}),
		bufferSize: cfg.bufferSize,
		now:        cfg.now,
	}
}

// Subscribe returns a channel of events of the given types, or of all
// events when none are given. The channel is closed when ctx is done or the
// broker closes. Subscribing to a closed broker yields a closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context, types ...EventType) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := &subscription[T]{
		ch:    make(chan Event[T], b.bufferSize),
		types: slices.Clone(types),
	}
	b.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	return sub.ch
}

func (b *Broker[T]) unsubscribe(sub *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish stamps the event and offers it to every interested subscriber.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Seq:       b.seq.Add(1),
		Timestamp: b.now(),
	}
	for sub := range b.subs {
		if !sub.wants(eventType) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscription. Later calls do nothing.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	clear(b.subs)
}

// SubscriberCount returns the number of open subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Published returns the sequence number of the last published event.
func (b *Broker[T]) Published() uint64 {
	return b.seq.Load()
}
