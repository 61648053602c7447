package soa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableExtraction_HeadersIsFixed(t *testing.T) {
	e := TableExtraction{}
	assert.Equal(t, []string{"section", "id", "name"}, e.headers())
}

func TestTableExtraction_RawRowsFlattensEverySection(t *testing.T) {
	e := TableExtraction{
		Payload: map[string]any{
			"visits":            []any{map[string]any{"id": "V1", "name": "Screening"}},
			"activities":        []any{map[string]any{"id": "A1", "name": "ECG"}},
			"activityInstances": []any{map[string]any{"id": "AI1", "name": "ECG @ Screening"}},
			"footnotes":         []any{map[string]any{"id": "F1", "name": "a"}},
		},
	}

	rows := e.rawRows()

	assert.Equal(t, [][]string{
		{"visits", "V1", "Screening"},
		{"activities", "A1", "ECG"},
		{"activityInstances", "AI1", "ECG @ Screening"},
		{"footnotes", "F1", "a"},
	}, rows)
}

func TestArrayLen(t *testing.T) {
	assert.Equal(t, 2, arrayLen(map[string]any{"visits": []any{1, 2}}, "visits"))
	assert.Equal(t, 0, arrayLen(map[string]any{}, "visits"))
}
