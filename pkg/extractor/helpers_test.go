package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreserveIdentityFields_CopiesMissingFieldFromPass1(t *testing.T) {
	pass1 := map[string]any{"studyId": "NCT001", "title": "Example"}
	pass2 := map[string]any{"title": "Example Revised"}

	result := preserveIdentityFields(pass1, pass2, []string{"studyId"})

	assert.Equal(t, "NCT001", result["studyId"])
	assert.Equal(t, "Example Revised", result["title"])
}

func TestPreserveIdentityFields_DoesNotOverwriteExistingField(t *testing.T) {
	pass1 := map[string]any{"studyId": "NCT001"}
	pass2 := map[string]any{"studyId": "NCT002"}

	result := preserveIdentityFields(pass1, pass2, []string{"studyId"})

	assert.Equal(t, "NCT002", result["studyId"])
}

func TestEnforceIdentityFields_NilReferenceIsNoop(t *testing.T) {
	data := map[string]any{"title": "Example"}
	result := enforceIdentityFields(data, nil, []string{"studyId"})
	assert.Equal(t, data, result)
}

func TestMapsEqual_DetectsDifference(t *testing.T) {
	a := map[string]any{"x": 1}
	b := map[string]any{"x": 2}
	assert.False(t, mapsEqual(a, b))
	assert.True(t, mapsEqual(a, map[string]any{"x": 1}))
}

func TestFormatFeedbackDigest_EmptyReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", formatFeedbackDigest(nil))
}
