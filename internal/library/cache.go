package library

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"
)

// Query cache defaults.
const (
	DefaultStaleTime = time.Minute
	DefaultGCTime    = 5 * time.Minute
	DefaultCacheSize = 256
)

// Key identifies a cached read, e.g. Key{"playlist", "7"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/") + "/"
}

type entry struct {
	value   any
	fetched time.Time
}

// Cache stores query results by key. Entries are fresh for the stale time and
// evicted after the GC time.
type Cache struct {
	lru   *expirable.LRU[string, entry]
	stale time.Duration
	now   func() time.Time
}

// NewCache returns a cache holding up to size entries.
func NewCache(size int, staleTime, gcTime time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if gcTime <= 0 {
		gcTime = DefaultGCTime
	}
	return &Cache{
		lru:   expirable.NewLRU[string, entry](size, nil, gcTime),
		stale: staleTime,
		now:   time.Now,
	}
}

// Get returns a fresh value for key.
func (c *Cache) Get(key Key) (any, bool) {
	e, ok := c.lru.Get(key.String())
	if !ok || c.now().Sub(e.fetched) >= c.stale {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key Key, value any) {
	c.lru.Add(key.String(), entry{value: value, fetched: c.now()})
}

// Invalidate removes every entry whose key starts with prefix and returns how many were removed.
func (c *Cache) Invalidate(prefix ...string) int {
	p := Key(prefix).String()
	matched := lo.Filter(c.lru.Keys(), func(k string, _ int) bool {
		return strings.HasPrefix(k, p)
	})
	for _, k := range matched {
		c.lru.Remove(k)
	}
	return len(matched)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Fetch returns the cached value for key or loads and stores it. Errors are not cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
