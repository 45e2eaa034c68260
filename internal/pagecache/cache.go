package pagecache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"crownworks/internal/logging"
)

// Status describes how current a cached page is.
type Status string

const (
	// StatusHit means the entry is inside its fresh window.
	StatusHit Status = "hit"
	// StatusStale means the entry is past fresh but still servable; the
	// caller should trigger a background re-render.
	StatusStale Status = "stale"
)

// Result is a successful cache lookup.
type Result struct {
	Status Status
	HTML   string
}

type entry struct {
	html         string
	freshUntil   time.Time
	staleUntil   time.Time
	revalidating bool
}

// Cache is a time-windowed page cache keyed by logical page identity. All
// operations are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	freshTTL time.Duration
	staleTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures optional Cache behavior.
type Option func(*Cache)

// WithClock overrides the cache's time source. Used by tests to walk entries
// through their freshness windows deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a page cache with the given freshness windows. TTLs below
// one second are raised to one second so an entry is always servable for a
// nonzero window.
func New(freshTTL, staleTTL time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	if freshTTL < time.Second {
		freshTTL = time.Second
	}
	if staleTTL < time.Second {
		staleTTL = time.Second
	}
	c := &Cache{
		entries:  make(map[string]*entry),
		freshTTL: freshTTL,
		staleTTL: staleTTL,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "pagecache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached page for key. Entries past their stale window are
// evicted and reported as a miss.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}

	now := c.now()
	switch {
	case !now.After(e.freshUntil):
		return Result{Status: StatusHit, HTML: e.html}, true
	case !now.After(e.staleUntil):
		return Result{Status: StatusStale, HTML: e.html}, true
	default:
		delete(c.entries, key)
		return Result{}, false
	}
}

// Put inserts or replaces the entry for key, resetting both windows and the
// revalidating flag.
func (c *Cache) Put(key, html string) {
	now := c.now()
	freshUntil := now.Add(c.freshTTL)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{
		html:       html,
		freshUntil: freshUntil,
		staleUntil: freshUntil.Add(c.staleTTL),
	}
}

// IsRevalidating reports whether a background refresh is already in flight
// for key.
func (c *Cache) IsRevalidating(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.revalidating
}

// SetRevalidating flips the in-flight refresh flag for key. Setting the flag
// on an absent key is a no-op; the next Put recreates the entry anyway.
func (c *Cache) SetRevalidating(key string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.revalidating = active
	}
}

// Invalidate removes entries whose key starts with prefix, or every entry
// when prefix is empty. It returns the number of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		removed := len(c.entries)
		c.entries = make(map[string]*entry)
		if removed > 0 {
			c.logger.Debug("cache cleared", logging.Int("removed", removed))
		}
		return removed
	}

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("cache invalidated", logging.String("prefix", prefix), logging.Int("removed", removed))
	}
	return removed
}

// Len returns the number of live entries, including ones past their windows
// that have not yet been lazily evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
