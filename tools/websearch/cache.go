package websearch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultCacheTTL is how long a query's results stay fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cached wraps a Provider with a TTL result cache so repeated queries in a
// session do not re-hit the search backend.
type Cached struct {
	inner Provider
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCached wraps inner with a cache. A zero ttl selects the default.
func NewCached(inner Provider, ttl time.Duration) (*Cached, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	key := fmt.Sprintf("%s|%d", query, opts.Count)
	if cached, ok := c.cache.Get(key); ok {
		if results, ok := cached.([]Result); ok {
			log.Printf("[SEARCH] cache hit for %q", query)
			return results, nil
		}
	}

	results, err := c.inner.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	cost := int64(1)
	for _, r := range results {
		cost += int64(len(r.Title) + len(r.URL) + len(r.Snippet))
	}
	c.cache.SetWithTTL(key, results, cost, c.ttl)
	return results, nil
}
