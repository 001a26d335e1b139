package cachemanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/depositform/internal/log"
)

// LoadFunc fetches the value for input on a cache miss.
type LoadFunc[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache fills cache misses by calling a LoadFunc. Concurrent
// misses on one key share a single load.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache CacheManager[K, V]
	load  LoadFunc[V, I]
	group singleflight.Group

	skip  bool
	stale bool

	mu       sync.Mutex
	lastGood map[K]V
}

// ReadThroughOption configures a ReadThroughCache.
type ReadThroughOption func(*readThroughConfig)

type readThroughConfig struct {
	skip  bool
	stale bool
}

// WithSkipCache sends every call to the loader. Loads are still shared.
func WithSkipCache(skip bool) ReadThroughOption {
	return func(c *readThroughConfig) { c.skip = skip }
}

// WithStaleOnError serves the last successfully loaded value when a reload
// fails, so an expired entry survives a service outage.
func WithStaleOnError() ReadThroughOption {
	return func(c *readThroughConfig) { c.stale = true }
}

// NewReadThroughCache wraps load with cache.
func NewReadThroughCache[K comparable, V any, I any](cache CacheManager[K, V], load LoadFunc[V, I], opts ...ReadThroughOption) *ReadThroughCache[K, V, I] {
	var cfg readThroughConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &ReadThroughCache[K, V, I]{
		cache:    cache,
		load:     load,
		skip:     cfg.skip,
		stale:    cfg.stale,
		lastGood: make(map[K]V),
	}
}

// Get returns the cached value at key or loads it from input. Failed loads
// are not cached.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if !r.skip {
		if v, ok := r.cache.Get(ctx, key); ok {
			return v, nil
		}
	}

	res, err, shared := r.group.Do(fmt.Sprint(key), func() (any, error) {
		v, err := r.load(ctx, input)
		if err != nil {
			return v, err
		}
		if !r.skip {
			r.cache.Set(ctx, key, v, ttl)
		}
		r.remember(key, v)
		return v, nil
	})
	if shared {
		log.Debug(log.CatCache, "Shared in-flight load", "key", key)
	}
	if err != nil {
		if v, ok := r.fallback(key); ok {
			log.Warn(log.CatCache, "Load failed, serving last good value", "key", key, "error", err)
			return v, nil
		}
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Invalidate drops key so the next Get reloads it. A stale fallback is kept.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, key K) error {
	return r.cache.Delete(ctx, key)
}

func (r *ReadThroughCache[K, V, I]) remember(key K, v V) {
	if !r.stale {
		return
	}
	r.mu.Lock()
	r.lastGood[key] = v
	r.mu.Unlock()
}

func (r *ReadThroughCache[K, V, I]) fallback(key K) (V, bool) {
	if !r.stale {
		var zero V
		return zero, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.lastGood[key]
	return v, ok
}
