package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("abc123", "study_identification", "v1")
	k2 := Key("abc123", "study_identification", "v1")
	assert.Equal(t, k1, k2)
}

func TestKey_DistinctComponentsProduceDistinctKeys(t *testing.T) {
	base := Key("abc123", "study_identification", "v1")

	assert.NotEqual(t, base, Key("xyz789", "study_identification", "v1"))
	assert.NotEqual(t, base, Key("abc123", "design_overview", "v1"))
	assert.NotEqual(t, base, Key("abc123", "study_identification", "v2"))
}

func TestFileTier_SetAndGet(t *testing.T) {
	tier := newFileTier(t.TempDir())
	key := Key("abc123", "study_identification", "v1")

	data := map[string]any{"studyId": "NCT00000001"}
	assert.NoError(t, tier.set(key, data))

	got, ok, err := tier.get(key)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "NCT00000001", got["studyId"])
}

func TestFileTier_Miss(t *testing.T) {
	tier := newFileTier(t.TempDir())

	_, ok, err := tier.get(Key("missing", "study_identification", "v1"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFileTier_SetOverwritesExistingKey(t *testing.T) {
	tier := newFileTier(t.TempDir())
	key := Key("abc123", "study_identification", "v1")

	assert.NoError(t, tier.set(key, map[string]any{"studyId": "first"}))
	assert.NoError(t, tier.set(key, map[string]any{"studyId": "second"}))

	got, ok, err := tier.get(key)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got["studyId"])
}
