package draft

import (
	"context"
	"time"

	"github.com/zjrosen/depositform/internal/cachemanager"
	"github.com/zjrosen/depositform/internal/tree"
)

// CacheStore keeps drafts in memory for the life of the process. It backs
// the form when no database path is configured.
type CacheStore struct {
	cache cachemanager.CacheManager[string, Draft]
	now   func() time.Time
}

var _ Store = (*CacheStore)(nil)

// NewCacheStore creates an empty in-memory store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: cachemanager.NewInMemoryCacheManager[string, Draft]("drafts", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
		now:   time.Now,
	}
}

// Save implements Store.
func (s *CacheStore) Save(ctx context.Context, d Draft) error {
	d.Values = tree.Clone(d.Values)
	if d.SavedAt.IsZero() {
		d.SavedAt = s.now()
	}
	s.cache.Set(ctx, d.Key.String(), d, cachemanager.NoExpiration)
	return nil
}

// Load implements Store.
func (s *CacheStore) Load(ctx context.Context, k Key) (Draft, error) {
	d, ok := s.cache.Get(ctx, k.String())
	if !ok {
		return Draft{}, ErrNotFound
	}
	d.Values = tree.Clone(d.Values)
	return d, nil
}

// Delete implements Store.
func (s *CacheStore) Delete(ctx context.Context, k Key) error {
	return s.cache.Delete(ctx, k.String())
}
