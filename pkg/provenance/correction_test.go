package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrector_FindPhysicalPage(t *testing.T) {
	c := NewCorrector([]string{
		"Page one content",
		"This is where NCT00000001 appears in the text",
		"Page three content",
	})

	assert.Equal(t, 2, c.FindPhysicalPage("NCT00000001"))
	assert.Equal(t, 0, c.FindPhysicalPage("nonexistent snippet"))
}

func TestCorrector_DetectPageOffset(t *testing.T) {
	c := NewCorrector([]string{
		"front matter, no number",
		"Some content\n1",
		"More content\n2",
		"Even more\n3",
	})
	// physical page 2 prints "1", physical 3 prints "2", physical 4 prints "3" => offset 1
	assert.Equal(t, 1, c.DetectPageOffset())
}

func TestCorrector_CorrectDocumentOverwritesPage(t *testing.T) {
	pages := []string{"intro", "The study is titled Example Trial for testing"}
	c := NewCorrector(pages)

	doc := []byte(`{"titleProvenance":{"kind":"explicit","page":99,"snippet":"Example Trial for testing"}}`)
	corrected, err := c.CorrectDocument(doc)
	assert.NoError(t, err)
	assert.Contains(t, string(corrected), `"page":2`)
}

func TestCorrector_CorrectDocumentLeavesUnresolvedSnippetUnchanged(t *testing.T) {
	pages := []string{"intro"}
	c := NewCorrector(pages)

	doc := []byte(`{"titleProvenance":{"kind":"explicit","page":99,"snippet":"not present anywhere"}}`)
	corrected, err := c.CorrectDocument(doc)
	assert.NoError(t, err)
	assert.Contains(t, string(corrected), `"page":99`)
}
