package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-process size bounded cache. Entries older than the ttl are treated as misses
// and removed on access. A zero ttl never expires entries.
type LRU struct {
	cache *lru.Cache[string, ttlEntry]
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	hits    uint64
	misses  uint64
	evicted uint64
}

type ttlEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	c, err := lru.New[string, ttlEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(key)
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		c.misses++
		return nil, false, nil
	}

	c.hits++
	return entry.value, true, nil
}

func (c *LRU) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	stored := make([]byte, len(val))
	copy(stored, val)
	if c.cache.Add(key, ttlEntry{value: stored, expiresAt: expiresAt}) {
		c.evicted++
	}
	return nil
}

func (c *LRU) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(key)
	return nil
}

func (c *LRU) Purge(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
	return nil
}

// Len returns the number of entries including expired ones not yet accessed
func (c *LRU) Len() int {
	return c.cache.Len()
}

type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Evicted uint64  `json:"evicted"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Evicted: c.evicted,
		Size:    c.cache.Len(),
		HitRate: hitRate,
	}
}
