package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/booklinehq/bookline/pkg/logging"
)

// Scraper fetches the live service list from the booking page.
type Scraper interface {
	ScrapeCatalog(ctx context.Context) ([]Entry, error)
}

// CacheMetrics receives cache outcome counts.
type CacheMetrics interface {
	ObserveCatalogCache(outcome string)
}

// Cache serves the catalog from a durable snapshot while it is younger than
// the TTL, and otherwise refreshes it through the scraper. Concurrent
// refreshes for the key are coalesced into a single scrape; every waiter
// observes that scrape's result.
type Cache struct {
	scraper Scraper
	store   *SnapshotStore
	ttl     time.Duration
	logger  *logging.Logger
	metrics CacheMetrics
	group   singleflight.Group
	now     func() time.Time
}

// CacheOption customizes cache behavior.
type CacheOption func(*Cache)

// WithCacheMetrics attaches a metrics sink.
func WithCacheMetrics(m CacheMetrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a TTL cache over the given scraper and snapshot store.
func NewCache(scraper Scraper, store *SnapshotStore, ttl time.Duration, logger *logging.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Cache{
		scraper: scraper,
		store:   store,
		ttl:     ttl,
		logger:  logger.Component("catalog"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached catalog when it is fresh, otherwise scrapes.
// A failed refresh propagates the scrape error; the stale snapshot is never
// served as a fallback.
func (c *Cache) Get(ctx context.Context, forceReload bool) (Catalog, error) {
	if !forceReload {
		snapshot, ok, err := c.store.Load()
		if err != nil {
			c.logger.Warn("unreadable catalog snapshot, refreshing", "error", err)
		} else if ok && c.now().Sub(snapshot.FetchedAt) < c.ttl {
			c.observe("hit")
			return snapshot, nil
		}
	}

	result, err, shared := c.group.Do("catalog", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		c.observe("error")
		return Catalog{}, err
	}
	if shared {
		c.logger.Debug("catalog refresh coalesced with in-flight scrape")
	}
	c.observe("miss")
	return result.(Catalog), nil
}

// GetServiceByID resolves a single entry, refreshing the cache if needed.
func (c *Cache) GetServiceByID(ctx context.Context, id string) (Entry, error) {
	cat, err := c.Get(ctx, false)
	if err != nil {
		return Entry{}, err
	}
	entry, ok := cat.FindByID(id)
	if !ok {
		return Entry{}, fmt.Errorf("catalog: service %s not found", id)
	}
	return entry, nil
}

func (c *Cache) refresh(ctx context.Context) (Catalog, error) {
	c.logger.Info("refreshing catalog")
	entries, err := c.scraper.ScrapeCatalog(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: refresh: %w", err)
	}

	if err := c.store.Save(entries); err != nil {
		// The scrape succeeded; serve it even if persisting failed.
		c.logger.Error("failed to persist catalog snapshot", "error", err)
	}

	c.logger.Info("catalog refreshed", "services", len(entries))
	return Catalog{Entries: entries, FetchedAt: c.now()}, nil
}

func (c *Cache) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveCatalogCache(outcome)
	}
}
