package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"criteria\":[]}\n```"
	clean, err := extractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"criteria":[]}`, clean)
}

func TestDecodeJSONArray(t *testing.T) {
	rows, err := decodeJSONArray(`[{"id":"ELIG-1","kind":"inclusion"}]`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "inclusion", rows[0]["kind"])
}

func TestDecodeJSONObject_InvalidJSON(t *testing.T) {
	_, err := decodeJSONObject(`{not valid`)
	assert.Error(t, err)
}

func TestStringFromAny(t *testing.T) {
	assert.Equal(t, "x", stringFromAny("x"))
	assert.Equal(t, "", stringFromAny(42))
}
