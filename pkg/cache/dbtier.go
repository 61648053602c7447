package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/cacheentry"
	"github.com/google/uuid"
)

// dbTier is the primary cache tier: one row per cache key in the
// cache_entries table, scoped to its protocol by foreign key so a
// protocol's soft/hard delete cascades its cache entries.
type dbTier struct {
	client *ent.Client
}

func newDBTier(client *ent.Client) *dbTier {
	return &dbTier{client: client}
}

func (t *dbTier) get(ctx context.Context, key string) (map[string]any, bool, error) {
	entry, err := t.client.CacheEntry.Query().
		Where(cacheentry.CacheKeyEQ(key)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query cache entry: %w", err)
	}

	now := time.Now()
	_, err = t.client.CacheEntry.UpdateOne(entry).
		SetLastHitAt(now).
		SetHitCount(entry.HitCount + 1).
		Save(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("update cache hit counters: %w", err)
	}

	return entry.Data, true, nil
}

func (t *dbTier) set(ctx context.Context, key, protocolID, moduleID string, data map[string]any) error {
	existing, err := t.client.CacheEntry.Query().
		Where(cacheentry.CacheKeyEQ(key)).
		Only(ctx)
	if err != nil && !ent.IsNotFound(err) {
		return fmt.Errorf("query existing cache entry: %w", err)
	}
	if existing != nil {
		_, err := t.client.CacheEntry.UpdateOne(existing).
			SetData(data).
			Save(ctx)
		return err
	}

	_, err = t.client.CacheEntry.Create().
		SetID(uuid.NewString()).
		SetCacheKey(key).
		SetProtocolID(protocolID).
		SetModuleID(moduleID).
		SetData(data).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	return nil
}

func (t *dbTier) invalidateProtocol(ctx context.Context, protocolID string) (int, error) {
	n, err := t.client.CacheEntry.Delete().
		Where(cacheentry.ProtocolIDEQ(protocolID)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries for protocol: %w", err)
	}
	return n, nil
}

func (t *dbTier) count(ctx context.Context) (int, error) {
	return t.client.CacheEntry.Query().Count(ctx)
}

// encodeForDisk marshals data the same way it is stored in the
// database JSON column, so the disk tier and the DB tier agree on
// byte-for-byte content for a given key.
func encodeForDisk(data map[string]any) ([]byte, error) {
	return json.Marshal(data)
}
