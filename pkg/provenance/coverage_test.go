package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverage_SiblingProvenanceCountsAsCovered(t *testing.T) {
	doc := []byte(`{
		"studyId": "NCT001",
		"studyIdProvenance": {"kind":"explicit","page":1,"snippet":"NCT001"}
	}`)
	res := Coverage(doc, nil)
	assert.Equal(t, 1, res.Eligible)
	assert.Equal(t, 1, res.Covered)
	assert.Equal(t, 1.0, res.Ratio())
}

func TestCoverage_MissingProvenanceNotCovered(t *testing.T) {
	doc := []byte(`{"studyId": "NCT001"}`)
	res := Coverage(doc, nil)
	assert.Equal(t, 1, res.Eligible)
	assert.Equal(t, 0, res.Covered)
	assert.Equal(t, 0.0, res.Ratio())
}

func TestCoverage_AncestorProvenanceInherited(t *testing.T) {
	doc := []byte(`{
		"design": {
			"provenance": {"kind":"derived","reasoning":"inferred from section 3","confidence":0.8},
			"blinding": "double_blind",
			"randomized": true
		}
	}`)
	res := Coverage(doc, nil)
	assert.Equal(t, 2, res.Eligible)
	assert.Equal(t, 2, res.Covered)
}

func TestCoverage_ExemptFieldsExcluded(t *testing.T) {
	doc := []byte(`{"id": "abc", "instanceType": "StudyDesign", "studyId": "NCT001"}`)
	res := Coverage(doc, []string{"studyId"})
	assert.Equal(t, 0, res.Eligible)
}

func TestCoverage_VacuousWhenNoEligibleFields(t *testing.T) {
	res := Coverage([]byte(`{"id":"abc"}`), nil)
	assert.Equal(t, 1.0, res.Ratio())
}
