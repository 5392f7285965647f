package indicator

import (
	"strings"
	"sync"
	"time"

	"sentinel/internal/pkg/symbol"
)

type cacheKey struct {
	symbol    string
	timeframe string
}

type cacheEntry struct {
	values   Values
	lastBar  int64
	storedAt time.Time
}

// Cache keeps one indicator result per (symbol, timeframe). An entry is
// served only for the same newest bar and while younger than ttl.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[cacheKey]cacheEntry)}
}

func keyOf(sym, timeframe string) cacheKey {
	return cacheKey{
		symbol:    symbol.Normalize(sym),
		timeframe: strings.ToUpper(strings.TrimSpace(timeframe)),
	}
}

func (c *Cache) Get(sym, timeframe string, lastBar int64) (Values, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := keyOf(sym, timeframe)
	ent, ok := c.entries[k]
	if !ok {
		return Values{}, false
	}
	if ent.lastBar != lastBar || c.now().Sub(ent.storedAt) >= c.ttl {
		delete(c.entries, k)
		return Values{}, false
	}
	return ent.values, true
}

func (c *Cache) Put(sym, timeframe string, lastBar int64, v Values) {
	c.mu.Lock()
	c.entries[keyOf(sym, timeframe)] = cacheEntry{values: v, lastBar: lastBar, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, ent := range c.entries {
		if now.Sub(ent.storedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
