package price

import (
	"context"
	"strings"
	"sync"
	"time"

	"stock-sentinel-bot/internal/types"
)

type cacheItem struct {
	quote      *types.Quote
	expiration time.Time
}

// Cache keeps quotes from an underlying Quoter for a short time.
type Cache struct {
	next  Quoter
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewCache(next Quoter, ttl time.Duration) *Cache {
	return &Cache{
		next:  next,
		ttl:   ttl,
		items: make(map[string]cacheItem),
		now:   time.Now,
	}
}

func (c *Cache) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	key := strings.ToUpper(symbol)

	c.mu.Lock()
	if item, found := c.items[key]; found && c.now().Before(item.expiration) {
		c.mu.Unlock()
		q := *item.quote
		return &q, nil
	}
	c.mu.Unlock()

	quote, err := c.next.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	now := c.now()
	c.evictExpired(now)
	c.items[key] = cacheItem{quote: quote, expiration: now.Add(c.ttl)}
	c.mu.Unlock()
	return quote, nil
}

// Len returns the number of cached quotes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictExpired must be called with mu held.
func (c *Cache) evictExpired(now time.Time) {
	for key, item := range c.items {
		if !now.Before(item.expiration) {
			delete(c.items, key)
		}
	}
}
