package soa

import (
	"testing"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineGroup_UnionsHeadersAndPreservesSourceOrder(t *testing.T) {
	a := &ent.TableResult{
		ID:            "t1",
		TableLabel:    "SOA-1",
		PageStart:     1,
		PageEnd:       2,
		ColumnHeaders: []string{"visit", "activity"},
		RawRows:       [][]string{{"Screening", "ECG"}},
	}
	b := &ent.TableResult{
		ID:            "t2",
		TableLabel:    "SOA-2",
		PageStart:     3,
		PageEnd:       4,
		ColumnHeaders: []string{"activity", "footnote"},
		RawRows:       [][]string{{"Labs", "a"}},
	}

	rows, headers, provenance := CombineGroup([]*ent.TableResult{a, b})

	assert.Equal(t, []string{"visit", "activity", "footnote"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Screening", "ECG", ""}, rows[0])
	assert.Equal(t, []string{"", "Labs", "a"}, rows[1])

	sources, ok := provenance["source_tables"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"t1", "t2"}, sources)

	rowSources, ok := provenance["row_sources"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, rowSources, 2)
	assert.Equal(t, "t1", rowSources[0]["table_result_id"])
	assert.Equal(t, "t2", rowSources[1]["table_result_id"])
}

func TestGroupDisplayName(t *testing.T) {
	assert.Equal(t, "MERGE-1 (2 table(s))", groupDisplayName("MERGE-1", []string{"t1", "t2"}))
}
