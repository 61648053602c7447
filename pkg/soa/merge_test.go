package soa

import (
	"testing"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(id, category string, pageStart, pageEnd int, headers []string, payload map[string]interface{}) *ent.TableResult {
	return &ent.TableResult{
		ID:            id,
		Category:      category,
		PageStart:     pageStart,
		PageEnd:       pageEnd,
		ColumnHeaders: headers,
		OutputPayload: payload,
	}
}

func TestAnalyzeMerges_IdenticalHeadersMerge(t *testing.T) {
	a := table("t1", "MAIN_SOA", 10, 11, []string{"visit", "activity"}, nil)
	b := table("t2", "MAIN_SOA", 12, 13, []string{"activity", "visit"}, nil)

	groups := AnalyzeMerges([]*ent.TableResult{a, b})

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"t1", "t2"}, groups[0].TableResultIDs)
	assert.Equal(t, 1, groups[0].DecisionLevel)
	assert.Equal(t, 0.98, groups[0].Confidence)
}

func TestAnalyzeMerges_UnrelatedTablesStayStandalone(t *testing.T) {
	a := table("t1", "MAIN_SOA", 1, 2, []string{"visit"}, nil)
	b := table("t2", "SAFETY_SOA", 90, 91, []string{"adverse_event"}, nil)

	groups := AnalyzeMerges([]*ent.TableResult{a, b})

	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Len(t, g.TableResultIDs, 1)
		assert.Equal(t, "standalone", g.MergeType)
	}
}

func TestAnalyzeMerges_VisitNameOverlapMergesSameCategory(t *testing.T) {
	a := table("t1", "MAIN_SOA", 1, 2, []string{"a"}, map[string]interface{}{
		"visits": []any{map[string]any{"name": "Screening"}},
	})
	b := table("t2", "MAIN_SOA", 50, 51, []string{"b"}, map[string]interface{}{
		"visits": []any{map[string]any{"name": "Screening"}, map[string]any{"name": "Week 4"}},
	})

	groups := AnalyzeMerges([]*ent.TableResult{a, b})

	require.Len(t, groups, 1)
	assert.Equal(t, "visit_overlap", groups[0].MergeType)
}

func TestAnalyzeMerges_TransitiveUnion(t *testing.T) {
	// a merges with b on identical headers; b merges with c on directly
	// adjacent pages; a and c should end up in the same group even though
	// they share no header signature and are not adjacent to each other
	// (transitivity via b).
	a := table("t1", "MAIN_SOA", 1, 2, []string{"x", "y"}, nil)
	b := table("t2", "MAIN_SOA", 3, 4, []string{"x", "y"}, nil)
	c := table("t3", "MAIN_SOA", 5, 6, []string{"z"}, nil)

	groups := AnalyzeMerges([]*ent.TableResult{a, b, c})

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, groups[0].TableResultIDs)
}
