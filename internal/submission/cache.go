package submission

import (
	"context"
	"sync"

	"github.com/muhtarbag/fenomen-pet/internal/store"
)

// SubmissionsKey is the cache slot holding the full submission list.
const SubmissionsKey = "submissions"

// Loader fetches the authoritative list for a cache key.
type Loader func(ctx context.Context, key string) ([]store.Submission, error)

type entry struct {
	data  []store.Submission
	stale bool
	gen   uint64
}

// Cache memoizes submission lists by key. Local edits and feed driven
// invalidation write the same slot and the latest write wins.
type Cache struct {
	mu      sync.Mutex
	load    Loader
	entries map[string]*entry
}

func NewCache(load Loader) *Cache {
	return &Cache{load: load, entries: make(map[string]*entry)}
}

// Get returns the cached list, refetching through the loader when the slot
// is missing or stale. A write that lands while the loader runs is kept.
func (c *Cache) Get(ctx context.Context, key string) ([]store.Submission, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.stale {
		out := clone(e.data)
		c.mu.Unlock()
		return out, nil
	}
	var gen uint64
	if ok {
		gen = e.gen
	}
	c.mu.Unlock()

	data, err := c.load(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; !ok || cur.gen == gen {
		c.entries[key] = &entry{data: clone(data), gen: gen + 1}
	}
	return clone(data), nil
}

func (c *Cache) SetAll(key string, data []store.Submission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{data: clone(data), gen: c.nextGen(key)}
}

// Invalidate marks the slot stale so the next Get refetches. A load still
// in flight for the slot is discarded.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markStale(key)
}

// markStale forces a refetch. A missing slot gets a stale placeholder so a
// loader started before the call cannot store its result.
func (c *Cache) markStale(key string) {
	if e, ok := c.entries[key]; ok {
		e.stale = true
		e.gen++
		return
	}
	c.entries[key] = &entry{stale: true, gen: 1}
}

// RemovePredicate drops every cached row matching pred and reports how many
// were removed. Removing rows that are already gone is a no-op. A missing
// or stale slot cannot be patched, so it is left to refetch.
func (c *Cache) RemovePredicate(key string, pred func(store.Submission) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.stale {
		c.markStale(key)
		return 0
	}
	kept := e.data[:0:0]
	for _, sub := range e.data {
		if !pred(sub) {
			kept = append(kept, sub)
		}
	}
	removed := len(e.data) - len(kept)
	if removed > 0 {
		e.data = kept
		e.gen++
	}
	return removed
}

func (c *Cache) nextGen(key string) uint64 {
	if e, ok := c.entries[key]; ok {
		return e.gen + 1
	}
	return 1
}

func byID(id int64) func(store.Submission) bool {
	return func(sub store.Submission) bool { return sub.ID == id }
}

func clone(data []store.Submission) []store.Submission {
	if data == nil {
		return nil
	}
	out := make([]store.Submission, len(data))
	copy(out, data)
	return out
}
