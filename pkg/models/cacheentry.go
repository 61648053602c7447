package models

import "github.com/codeready-toolchain/protocolx/ent"

// CacheLookupRequest identifies a cache entry by its derived key
// components; pkg/cache computes the actual cache_key.
type CacheLookupRequest struct {
	ProtocolContentHash string `json:"protocol_content_hash"`
	ModuleID            string `json:"module_id"`
	PromptVersion       string `json:"prompt_version"`
}

// CacheEntryResponse wraps a CacheEntry.
type CacheEntryResponse struct {
	*ent.CacheEntry
}

// CacheStats reports aggregate cache tier counters for observability.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	DBTier    int64 `json:"db_tier_hits"`
	DiskTier  int64 `json:"disk_tier_hits"`
	Entries   int64 `json:"entries"`
}
