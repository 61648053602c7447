// Package cache implements the content-addressed extraction cache: a
// DB-backed primary tier with a filesystem-tree fallback, keyed on the
// protocol's content hash, the module id, and the prompt version that
// produced an extraction.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for one module extraction attempt: the
// hex-encoded SHA-256 (64 hex chars) of the three identity components,
// NUL-separated.
func Key(protocolContentHash, moduleID, promptVersion string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(protocolContentHash))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(moduleID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(promptVersion))
	return hex.EncodeToString(h.Sum(nil))
}
