package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func phaseCodelist() map[string]Codelist {
	return map[string]Codelist{
		"Trial Phase": {
			Name: "Trial Phase",
			Entries: map[string]CodelistEntry{
				"C15600": {Decode: "Phase II Trial", Synonyms: []string{"Phase 2", "Phase II"}},
			},
		},
	}
}

func TestValidator_ResolvesExactDecode(t *testing.T) {
	v := NewValidator(phaseCodelist())
	doc := []byte(`{"studyPhase": {"code": "C15600", "decode": "Phase II Trial"}}`)

	score, issues, err := v.Validate(doc)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, issues)
}

func TestValidator_ResolvesSynonymDecode(t *testing.T) {
	v := NewValidator(phaseCodelist())
	doc := []byte(`{"studyPhase": {"code": "C15600", "decode": "Phase 2"}}`)

	score, _, err := v.Validate(doc)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestValidator_UnresolvedCodeReportsIssue(t *testing.T) {
	v := NewValidator(phaseCodelist())
	doc := []byte(`{"studyPhase": {"code": "C99999", "decode": "Phase Unknown"}}`)

	score, issues, err := v.Validate(doc)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Len(t, issues, 1)
	assert.Equal(t, "Trial Phase", issues[0].Codelist)
}

func TestValidator_VacuousWhenNoCodePairs(t *testing.T) {
	v := NewValidator(phaseCodelist())
	score, issues, err := v.Validate([]byte(`{"studyId": "NCT001"}`))
	assert.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, issues)
}

func TestPathCodelist_InfersFromPath(t *testing.T) {
	assert.Equal(t, "Trial Phase", PathCodelist("studyPhase"))
	assert.Equal(t, "Arm Type", PathCodelist("arms.0.type"))
	assert.Equal(t, "Unspecified", PathCodelist("someUnknownField"))
}
