package combiner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeProvenance(t *testing.T) {
	data := map[string]any{
		"title": "A Study",
		"provenance": map[string]any{
			"kind": "explicit",
			"page": 3,
		},
		"arms": []any{
			map[string]any{
				"name": "Arm A",
				"nameProvenance": map[string]any{
					"kind": "derived",
				},
			},
		},
	}

	summary := summarizeProvenance(data)
	assert.Equal(t, 2, summary.TotalFields)
	assert.Equal(t, 1, summary.ExplicitFields)
	assert.Equal(t, 1, summary.DerivedFields)
	assert.Equal(t, 1.0, summary.Coverage)
}

func TestSummarizeProvenance_NoProvenanceFields(t *testing.T) {
	summary := summarizeProvenance(map[string]any{"title": "A Study"})
	assert.Equal(t, 0, summary.TotalFields)
	assert.Equal(t, 0.0, summary.Coverage)
}

func TestBuildAgentDocumentation(t *testing.T) {
	results := map[string]map[string]any{
		"eligibility_criteria": {
			"_metadata": map[string]any{
				"notes": []any{"resolved ambiguous header by proximity to known anchor"},
			},
		},
		"visit_schedule": {
			"_metadata": map[string]any{},
		},
	}

	entries := buildAgentDocumentation(results)
	assert.Len(t, entries, 1)
	assert.Equal(t, "eligibility_criteria", entries[0].ModuleID)
}

func TestCombiner_DetectPageOffset_NoPages(t *testing.T) {
	c := New(nil)
	assert.Equal(t, 0, c.detectPageOffset(nil))
}
