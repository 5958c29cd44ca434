package dashboard

import (
	"container/list"
	"sync"
	"time"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
)

// RenderKey identifies one render. A control change bumps Revision, so
// stale renders are never served even before Invalidate runs.
type RenderKey struct {
	View     string
	Revision uint64
	Format   string
	Viewport choropleth.Viewport
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Bytes      int64   `json:"bytes"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
}

type renderEntry struct {
	key    RenderKey
	data   []byte
	stored time.Time
}

// RenderCache holds rendered maps in least-recently-used order with an
// optional TTL. One cache may be shared by several views.
type RenderCache struct {
	mu    sync.Mutex
	max   int
	ttl   time.Duration
	lru   *list.List // front is most recent
	index map[RenderKey]*list.Element
	stats CacheStats
	now   func() time.Time
}

// NewRenderCache creates a RenderCache with the given capacity and TTL. A
// non-positive capacity disables caching; a zero TTL never expires.
func NewRenderCache(maxEntries int, ttl time.Duration) *RenderCache {
	return &RenderCache{
		max:   maxEntries,
		ttl:   ttl,
		lru:   list.New(),
		index: make(map[RenderKey]*list.Element),
		now:   time.Now,
	}
}

// Get returns a cached render, or nil on a miss or an expired entry.
func (c *RenderCache) Get(k RenderKey) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[k]
	if !ok {
		c.stats.Misses++
		return nil
	}
	e := el.Value.(*renderEntry)
	if c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		c.remove(el)
		c.stats.Misses++
		return nil
	}
	c.lru.MoveToFront(el)
	c.stats.Hits++
	return e.data
}

// Put stores a render, evicting the least recently used entries when full.
func (c *RenderCache) Put(k RenderKey, data []byte) {
	if c.max <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[k]; ok {
		e := el.Value.(*renderEntry)
		c.stats.Bytes += int64(len(data) - len(e.data))
		e.data, e.stored = data, c.now()
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.max {
		c.remove(c.lru.Back())
		c.stats.Evictions++
	}
	c.index[k] = c.lru.PushFront(&renderEntry{key: k, data: data, stored: c.now()})
	c.stats.Bytes += int64(len(data))
}

// Invalidate drops every render of view.
func (c *RenderCache) Invalidate(view string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*renderEntry).key.View == view {
			c.remove(el)
		}
		el = next
	}
}

// Stats returns a snapshot of the cache counters.
func (c *RenderCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.lru.Len()
	s.MaxEntries = c.max
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *RenderCache) remove(el *list.Element) {
	e := c.lru.Remove(el).(*renderEntry)
	delete(c.index, e.key)
	c.stats.Bytes -= int64(len(e.data))
}
