package soa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n[{\"id\":\"SOA-1\"}]\n```"
	clean, err := extractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"SOA-1"}]`, clean)
}

func TestExtractJSON_NoJSONFound(t *testing.T) {
	_, err := extractJSON("not json at all")
	assert.Error(t, err)
}

func TestDecodeJSONArray(t *testing.T) {
	rows, err := decodeJSONArray(`[{"id":"SOA-1","pageStart":3},{"id":"SOA-2","pageStart":8}]`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SOA-1", rows[0]["id"])
	assert.Equal(t, 3.0, rows[0]["pageStart"])
}

func TestDecodeJSONObject(t *testing.T) {
	obj, err := decodeJSONObject(`{"visits": [{"id": "V1"}]}`)
	require.NoError(t, err)
	visits, ok := obj["visits"].([]interface{})
	require.True(t, ok)
	assert.Len(t, visits, 1)
}

func TestIntFromAny(t *testing.T) {
	assert.Equal(t, 3, intFromAny(3.0))
	assert.Equal(t, 0, intFromAny("not a number"))
}
