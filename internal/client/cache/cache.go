// Package cache memoizes category lookups on the client for a bounded time.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chanfilter/internal/catalog/models"
)

// DefaultTTL is how long a cached lookup stays valid.
const DefaultTTL = 24 * time.Hour

// Entry is one memoized lookup.
type Entry struct {
	Key        models.IdentityKey
	Categories models.CategorySet
	RecordedAt time.Time
}

// Cache is the client-side decision cache.
type Cache interface {
	Get(key models.IdentityKey) (models.CategorySet, bool)
	Put(ctx context.Context, key models.IdentityKey, categories models.CategorySet) error
	SweepExpired(ctx context.Context) (int, error)
	Len() int
}

// Sink persists cache entries across process restarts.
type Sink interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, keys []models.IdentityKey) error
	Close() error
}

// TTLCache keeps entries in memory and mirrors writes to a Sink. Lookups are
// served from memory only.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[models.IdentityKey]Entry
	sink    Sink
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	// stale holds keys the sink returned already expired; the next sweep
	// deletes them from the sink.
	stale []models.IdentityKey
}

type Option func(c *TTLCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *TTLCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		c.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *TTLCache) {
		c.logger = logger
	}
}

// New builds a cache over sink and hydrates it with the unexpired entries the
// sink holds. A nil sink keeps everything in memory.
func New(ctx context.Context, sink Sink, opts ...Option) (*TTLCache, error) {
	if sink == nil {
		sink = NewMemorySink()
	}
	c := &TTLCache{
		entries: make(map[models.IdentityKey]Entry),
		sink:    sink,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	loaded, err := sink.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate cache: %w", err)
	}
	now := c.now()
	for _, e := range loaded {
		if c.expired(e, now) {
			c.stale = append(c.stale, e.Key)
			continue
		}
		if cur, ok := c.entries[e.Key]; ok && cur.RecordedAt.After(e.RecordedAt) {
			continue
		}
		c.entries[e.Key] = e
	}
	c.logger.Debug("decision cache hydrated", "loaded", len(loaded), "live", len(c.entries))
	return c, nil
}

// Get returns the cached categories for key, or false when the key is absent
// or its entry is older than the TTL. Expired entries are left for SweepExpired.
func (c *TTLCache) Get(key models.IdentityKey) (models.CategorySet, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(e, c.now()) {
		return nil, false
	}
	return e.Categories.Clone(), true
}

// Put stores categories for key, overwriting any previous entry. A sink
// failure is returned but the in-memory entry is kept.
func (c *TTLCache) Put(ctx context.Context, key models.IdentityKey, categories models.CategorySet) error {
	e := Entry{Key: key, Categories: categories.Clone(), RecordedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	if err := c.sink.Save(ctx, e); err != nil {
		return fmt.Errorf("persist cache entry: %w", err)
	}
	return nil
}

// SweepExpired drops every entry older than the TTL from memory and the sink
// and returns how many were removed.
func (c *TTLCache) SweepExpired(ctx context.Context) (int, error) {
	now := c.now()
	var expired []models.IdentityKey

	c.mu.Lock()
	for _, k := range c.stale {
		if _, held := c.entries[k]; !held {
			expired = append(expired, k)
		}
	}
	for k, e := range c.entries {
		if c.expired(e, now) {
			expired = append(expired, k)
			delete(c.entries, k)
		}
	}
	c.stale = nil
	c.mu.Unlock()

	if len(expired) == 0 {
		return 0, nil
	}
	if err := c.sink.Delete(ctx, expired); err != nil {
		return len(expired), fmt.Errorf("delete expired entries: %w", err)
	}
	return len(expired), nil
}

// Len returns the number of entries held in memory, expired ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a snapshot of the live entries.
func (c *TTLCache) Entries() []Entry {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if !c.expired(e, now) {
			e.Categories = e.Categories.Clone()
			out = append(out, e)
		}
	}
	return out
}

// TTL returns the configured validity window.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Close releases the sink.
func (c *TTLCache) Close() error {
	return c.sink.Close()
}

func (c *TTLCache) expired(e Entry, now time.Time) bool {
	return now.Sub(e.RecordedAt) > c.ttl
}
