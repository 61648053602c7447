// Package pdftext extracts per-page plain text from a protocol PDF for
// the provenance corrector's snippet search — a
// narrow, local reading of the source document distinct from the
// multimodal upload pkg/docstore sends the LLM.
package pdftext

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractPages returns the plain text of every physical page of
// content, in page order, for pkg/provenance.NewCorrector.
func ExtractPages(content []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf reader: %w", err)
	}

	count := reader.NumPage()
	pages := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("extract text for page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// PageCount returns the physical page count of content without
// extracting text, for the combiner's source-document metadata block.
func PageCount(content []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("open pdf reader: %w", err)
	}
	return reader.NumPage(), nil
}
