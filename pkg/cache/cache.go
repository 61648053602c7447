package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/models"
)

// Cache is the content-addressed module extraction cache. Reads and
// writes go to the database tier first; if the database is
// unreachable, the filesystem tier is used instead so extraction can
// still benefit from caching during a database outage. A write always
// fans out to both tiers when the database is reachable, keeping the
// filesystem tier warm as a standby.
type Cache struct {
	db   *dbTier
	disk *fileTier

	hits     atomic.Int64
	misses   atomic.Int64
	dbHits   atomic.Int64
	diskHits atomic.Int64
}

// New creates a Cache backed by client for the database tier and dir
// for the filesystem fallback tier.
func New(client *ent.Client, dir string) *Cache {
	return &Cache{
		db:   newDBTier(client),
		disk: newFileTier(dir),
	}
}

// Get looks up the cached extraction result for a module against a
// protocol, trying the database tier and falling back to disk.
func (c *Cache) Get(ctx context.Context, protocolContentHash, moduleID, promptVersion string) (map[string]any, bool) {
	key := Key(protocolContentHash, moduleID, promptVersion)

	data, ok, err := c.db.get(ctx, key)
	if err == nil && ok {
		c.hits.Add(1)
		c.dbHits.Add(1)
		return data, true
	}
	if err != nil {
		slog.Warn("cache db tier unavailable, falling back to disk", "error", err)
	}

	data, ok, err = c.disk.get(key)
	if err != nil {
		slog.Warn("cache disk tier read failed", "error", err)
	}
	if ok {
		c.hits.Add(1)
		c.diskHits.Add(1)
		return data, true
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores an extraction result under the cache key derived from
// protocolID's content hash, moduleID, and promptVersion.
func (c *Cache) Set(ctx context.Context, protocolContentHash, protocolID, moduleID, promptVersion string, data map[string]any) error {
	key := Key(protocolContentHash, moduleID, promptVersion)

	dbErr := c.db.set(ctx, key, protocolID, moduleID, data)
	if dbErr != nil {
		slog.Warn("cache db tier write failed, writing disk tier only", "error", dbErr)
	}

	if err := c.disk.set(key, data); err != nil {
		if dbErr != nil {
			return fmt.Errorf("both cache tiers failed: db=%v disk=%w", dbErr, err)
		}
		slog.Warn("cache disk tier write failed", "error", err)
	}

	return nil
}

// InvalidateProtocol removes every cache entry belonging to a protocol,
// used when a protocol's content changes (re-ingestion under the same
// id is not expected, but a module's prompt version bump invalidates
// prior results for the whole protocol).
func (c *Cache) InvalidateProtocol(ctx context.Context, protocolID string) (int, error) {
	n, err := c.db.invalidateProtocol(ctx, protocolID)
	if err != nil {
		return 0, err
	}
	_ = c.disk.invalidateProtocol(protocolID)
	return n, nil
}

// Stats reports cumulative hit/miss counters for observability.
func (c *Cache) Stats(ctx context.Context) models.CacheStats {
	entries, err := c.db.count(ctx)
	if err != nil {
		slog.Warn("cache stats: db tier count failed", "error", err)
		entries = -1
	}
	return models.CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		DBTier:   c.dbHits.Load(),
		DiskTier: c.diskHits.Load(),
		Entries:  int64(entries),
	}
}
