// Package layout caches the per-category field list so cascade scans don't
// hit the store for every fallback resolution.
package layout

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/store"
)

// DefaultTTL bounds how stale a cached field list may get.
const DefaultTTL = 5 * time.Minute

type entry struct {
	fields    []string
	fetchedAt time.Time
}

// Cache is a TTL-bounded field-list cache, keyed by category.
type Cache struct {
	store store.Store
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New creates a Cache. ttl <= 0 selects DefaultTTL.
func New(st store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   st,
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Fields returns the category's known field names, loading through the store
// on a miss or after expiry.
func (c *Cache) Fields(ctx context.Context, category string) ([]string, error) {
	c.mu.Lock()
	if e, ok := c.entries[category]; ok && c.now().Sub(e.fetchedAt) < c.ttl {
		fields := e.fields
		c.mu.Unlock()
		return fields, nil
	}
	c.mu.Unlock()

	fields, err := c.store.ListFields(ctx, category)
	if err != nil {
		return nil, eris.Wrap(err, "layout: list fields")
	}

	c.mu.Lock()
	c.entries[category] = entry{fields: fields, fetchedAt: c.now()}
	c.mu.Unlock()
	return fields, nil
}

// Has reports whether the category carries the given field.
func (c *Cache) Has(ctx context.Context, category, field string) (bool, error) {
	fields, err := c.Fields(ctx, category)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		if model.EqualFoldTrim(f, field) {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached entry for a category. Enum removes and renames
// call this so the next scan sees the rewritten layout.
func (c *Cache) Invalidate(category string) {
	c.mu.Lock()
	delete(c.entries, category)
	c.mu.Unlock()
}
