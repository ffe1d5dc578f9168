package menulens

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheCapacity bounds the single-shot result cache.
const DefaultCacheCapacity = 256

// CacheEntry is one cached single-shot result.
type CacheEntry struct {
	Fingerprint string
	Result      any
	InsertedAt  time.Time
}

// ResultCache memoizes single-shot results by image fingerprint. It is
// bounded and evicts the least recently used entry. Concurrent misses for
// the same key share one provider call. A nil *ResultCache disables caching.
type ResultCache struct {
	entries *lru.Cache[string, CacheEntry]
	group   singleflight.Group
	now     func() time.Time
}

// NewResultCache creates a cache holding at most capacity entries.
func NewResultCache(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := lru.New[string, CacheEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &ResultCache{entries: entries, now: time.Now}, nil
}

// CacheKey scopes a fingerprint by result kind and language.
func CacheKey(kind Mode, lang, fingerprint string) string {
	return string(kind) + ":" + lang + ":" + fingerprint
}

// Get returns the entry stored under key.
func (c *ResultCache) Get(key string) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}
	return c.entries.Get(key)
}

// Put stores result under key, replacing any previous entry.
func (c *ResultCache) Put(key string, result any) {
	if c == nil {
		return
	}
	c.entries.Add(key, CacheEntry{Fingerprint: key, Result: result, InsertedAt: c.now()})
}

// Len reports the number of cached entries.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

// Do returns the cached result for key or computes it with fn. Only
// successful results are stored. hit reports whether fn was skipped.
//
// A shared miss runs fn detached from any single caller's cancellation, so
// a caller that gives up gets ctx.Err() without failing the others waiting
// on the same key. fn is still bound by its own request timeout.
func (c *ResultCache) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (result any, hit bool, err error) {
	if c == nil {
		result, err = fn(ctx)
		return result, false, err
	}
	if e, ok := c.entries.Get(key); ok {
		return e.Result, true, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.entries.Get(key); ok {
			return e.Result, nil
		}
		r, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Put(key, r)
		return r, nil
	})
	select {
	case res := <-ch:
		return res.Val, false, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
