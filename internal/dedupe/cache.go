// ABOUTME: Persistent TTL cache for deduplicating republished messages.
// ABOUTME: Lazy expiry on lookup, cleanup plus size cap on insert, write-through storage.

package dedupe

import (
	"container/heap"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Cache records which source messages have already been republished.
// Keys are "<channelID>_<messageID>", values are unix seconds of when the
// message was recorded. Every Insert is flushed to the backing Store before
// it returns.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]int64
	store   Store
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for load and persistence diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// Open creates a cache backed by store and loads its previous contents.
// A missing or unreadable store yields an empty cache; the failure is logged
// and never returned.
func Open(store Store, ttl time.Duration, maxSize int, opts ...Option) *Cache {
	c := &Cache{
		seen:    make(map[string]int64),
		store:   store,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "dedupe")

	loaded, err := store.Load()
	if err != nil {
		c.logger.Warn("cache storage unreadable, starting empty",
			"location", store.Location(),
			"error", err,
		)
		return c
	}
	if loaded != nil {
		c.seen = loaded
	}
	c.logger.Debug("cache loaded", "location", store.Location(), "entries", len(c.seen))
	return c
}

// Key builds the composite cache key for a message.
func Key(channelID, messageID string) string {
	return channelID + "_" + messageID
}

// Exists reports whether the message was recorded less than TTL ago.
// An expired entry is removed as a side effect.
func (c *Cache) Exists(channelID, messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(channelID, messageID)
	ts, ok := c.seen[key]
	if !ok {
		return false
	}
	if c.age(ts, c.now()) < c.ttl {
		return true
	}
	delete(c.seen, key)
	return false
}

// Insert records the message at the current time, runs cleanup, and persists
// the cache. On a persistence error the in-memory state is still updated.
func (c *Cache) Insert(channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.seen[Key(channelID, messageID)] = now.Unix()
	c.cleanupLocked(now)

	return c.store.Save(c.seen)
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Snapshot returns a copy of the key to timestamp mapping.
func (c *Cache) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.seen)
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) age(ts int64, now time.Time) time.Duration {
	return now.Sub(time.Unix(ts, 0))
}

// cleanupLocked drops expired entries, then trims the cache to maxSize keeping
// the most recent timestamps. Must be called with mu held.
func (c *Cache) cleanupLocked(now time.Time) {
	for key, ts := range c.seen {
		if c.age(ts, now) >= c.ttl {
			delete(c.seen, key)
		}
	}

	if c.maxSize <= 0 || len(c.seen) <= c.maxSize {
		return
	}

	// Min-heap of the newest maxSize entries: the root is the oldest survivor,
	// replaced whenever a newer entry shows up.
	h := make(entryHeap, 0, c.maxSize)
	for key, ts := range c.seen {
		if len(h) < c.maxSize {
			heap.Push(&h, entry{key: key, ts: ts})
			continue
		}
		if ts > h[0].ts {
			h[0] = entry{key: key, ts: ts}
			heap.Fix(&h, 0)
		}
	}

	kept := make(map[string]int64, len(h))
	for _, e := range h {
		kept[e.key] = e.ts
	}
	c.logger.Debug("cache over capacity, evicted oldest entries",
		"evicted", len(c.seen)-len(kept),
		"max_size", c.maxSize,
	)
	c.seen = kept
}

type entry struct {
	key string
	ts  int64
}

// entryHeap is a min-heap of entries ordered by timestamp.
type entryHeap []entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].ts < h[j].ts }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
