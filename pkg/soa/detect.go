package soa

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
)

const detectPrompt = `You are reviewing a clinical trial protocol PDF for its Schedule-of-Activities (SOA) tables.
Identify every SOA table in the document. For each one, report:
- id: a short business identifier, e.g. "SOA-1", "SOA-2", assigned in reading order
- pageStart / pageEnd: the 1-based physical page range the table spans
- category: one of MAIN_SOA, PK_SOA, SAFETY_SOA, PD_SOA (default MAIN_SOA when unclear)

Respond with a JSON array only, one object per table, no prose.`

// DetectPages runs SOA table page-range detection against the
// protocol's remote document handle. No per-table detection confidence
// is recorded.
func DetectPages(ctx context.Context, ds *docstore.Client, cfg *config.InterpretConfig, remoteFileURI string) ([]DetectedPage, error) {
	text, err := ds.GenerateContent(ctx, llmChain(cfg), remoteFileURI, detectPrompt, "")
	if err != nil {
		return nil, fmt.Errorf("detect SOA pages: %w", err)
	}

	rows, err := decodeJSONArray(text)
	if err != nil {
		return nil, fmt.Errorf("parse SOA page detection response: %w", err)
	}

	pages := make([]DetectedPage, 0, len(rows))
	for i, row := range rows {
		id := stringFromAny(row["id"])
		if id == "" {
			id = fmt.Sprintf("SOA-%d", i+1)
		}
		pages = append(pages, DetectedPage{
			ID:        id,
			PageStart: intFromAny(row["pageStart"]),
			PageEnd:   intFromAny(row["pageEnd"]),
			Category:  normalizeCategory(stringFromAny(row["category"])),
		})
	}
	return pages, nil
}
