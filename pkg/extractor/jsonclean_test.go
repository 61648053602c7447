package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONLenient_PlainObject(t *testing.T) {
	data, err := parseJSONLenient(`{"studyId": "NCT001"}`)
	require.NoError(t, err)
	assert.Equal(t, "NCT001", data["studyId"])
}

func TestParseJSONLenient_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"studyId\": \"NCT001\"}\n```"
	data, err := parseJSONLenient(raw)
	require.NoError(t, err)
	assert.Equal(t, "NCT001", data["studyId"])
}

func TestParseJSONLenient_ExtractsObjectFromProse(t *testing.T) {
	raw := "Here is the result:\n{\"studyId\": \"NCT001\"}\nLet me know if you need anything else."
	data, err := parseJSONLenient(raw)
	require.NoError(t, err)
	assert.Equal(t, "NCT001", data["studyId"])
}

func TestParseJSONLenient_NoObjectReturnsError(t *testing.T) {
	_, err := parseJSONLenient("not json at all")
	assert.Error(t, err)
}
