package interpret

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc() Document {
	return Document{
		"activities": []any{
			map[string]any{"id": "act-1", "name": "Vital Signs"},
			map[string]any{"id": "act-2", "name": "PK Sample or Hematology Draw"},
		},
		"encounters": []any{
			map[string]any{"id": "enc-1", "name": "Cycle Visit", "recurrence": "PER_CYCLE", "cycles": float64(2)},
		},
		"instances": []any{
			map[string]any{"id": "inst-1", "activityId": "act-1", "encounterId": "enc-1", "timing": "pre-dose, post-dose"},
		},
		"protocolSections": []any{
			map[string]any{"id": "sec-1", "text": "Vital signs are collected at every visit."},
		},
	}
}

func TestPipeline_Run_DeterministicStagesNoLLM(t *testing.T) {
	p := New(nil, config.DefaultInterpretConfig())

	var seen []string
	doc, results, err := p.Run(context.Background(), testDoc(), func(n int, name string, status Status) {
		seen = append(seen, name)
	})
	require.NoError(t, err)
	assert.Len(t, results, 12)
	assert.Len(t, seen, 12)

	schedule := asMap(doc["schedule"])
	assert.NotNil(t, schedule)

	humanReview := asMap(doc["humanReview"])
	assert.GreaterOrEqual(t, humanReview["count"], 0)
}

func TestPipeline_Run_HaltsOnComplianceError(t *testing.T) {
	p := New(nil, config.DefaultInterpretConfig())

	doc := testDoc()
	instances := asSlice(doc, "instances")
	bad := asMap(instances[0])
	bad["activityId"] = "does-not-exist"

	_, results, err := p.Run(context.Background(), doc, nil)
	require.Error(t, err)

	last := results[len(results)-1]
	assert.Equal(t, "compliance_check", last.Name)
	assert.Equal(t, StatusError, last.Status)
}

func TestPipeline_ProtocolMining_AttachesSourceSections(t *testing.T) {
	p := New(nil, config.DefaultInterpretConfig())

	doc, _, err := p.Run(context.Background(), testDoc(), nil)
	require.NoError(t, err)

	for _, raw := range asSlice(doc, "activities") {
		a := asMap(raw)
		if a["name"] == "Vital Signs" {
			assert.Contains(t, a["sourceSections"], "sec-1")
		}
	}
}
