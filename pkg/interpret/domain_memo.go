package interpret

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// domainMemo is stage 1's on-disk cache keyed by normalized activity
// name, the same content-addressed-file idiom as
// pkg/cache's fileTier but standalone since this cache has no
// database tier to fall back from.
type domainMemo struct {
	dir string
}

func newDomainMemo(dir string) *domainMemo {
	return &domainMemo{dir: dir}
}

type domainMapping struct {
	Category          string         `json:"category"`
	CDASHDomain       string         `json:"cdashDomain"`
	BiomedicalConcept map[string]any `json:"biomedicalConcept,omitempty"`
}

func (m *domainMemo) key(normalizedName string) string {
	h := xxhash.Sum64String(normalizedName)
	return fmt.Sprintf("%016x", h)
}

func (m *domainMemo) get(normalizedName string) (domainMapping, bool) {
	if m.dir == "" {
		return domainMapping{}, false
	}
	raw, err := os.ReadFile(m.path(normalizedName))
	if err != nil {
		return domainMapping{}, false
	}
	var mapping domainMapping
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return domainMapping{}, false
	}
	return mapping, true
}

func (m *domainMemo) set(normalizedName string, mapping domainMapping) {
	if m.dir == "" {
		return
	}
	path := m.path(normalizedName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	raw, err := json.Marshal(mapping)
	if err != nil {
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}

func (m *domainMemo) path(normalizedName string) string {
	key := m.key(normalizedName)
	return filepath.Join(m.dir, key[:2], key+".json")
}
