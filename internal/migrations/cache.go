package migrations

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the sliding expiration between migrations of one database.
const DefaultWindow = time.Minute

// Cache remembers which databases were migrated recently. An entry expires
// after the window elapses without being checked; every check of a live
// entry pushes its expiry out again. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	expires map[string]time.Time
	window  time.Duration
	now     func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache with the given sliding window. A non-positive
// window means DefaultWindow.
func NewCache(window time.Duration, opts ...CacheOption) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Cache{
		expires: make(map[string]time.Time),
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the sliding expiration window.
func (c *Cache) Window() time.Duration {
	return c.window
}

// ShouldMigrate reports whether name may be migrated now. It returns false
// while a previous MarkMigrated is within the window and slides the window.
func (c *Cache) ShouldMigrate(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldMigrate(name, c.now())
}

// MarkMigrated records that name was just migrated.
func (c *Cache) MarkMigrated(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expires[name] = c.now().Add(c.window)
}

// TryAcquire checks and marks name in one step. Of several concurrent
// callers within one window, exactly one gets true.
func (c *Cache) TryAcquire(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.shouldMigrate(name, now) {
		return false
	}
	c.expires[name] = now.Add(c.window)
	return true
}

// Forget drops the entry for name so the next check allows a migration.
func (c *Cache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.expires, name)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for name, exp := range c.expires {
		if !now.Before(exp) {
			delete(c.expires, name)
			n++
		}
	}
	return n
}

// Run sweeps expired entries periodically until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache) shouldMigrate(name string, now time.Time) bool {
	exp, ok := c.expires[name]
	if !ok {
		return true
	}
	if !now.Before(exp) {
		delete(c.expires, name)
		return true
	}
	c.expires[name] = now.Add(c.window)
	return false
}
