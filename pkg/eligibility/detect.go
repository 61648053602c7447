package eligibility

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
)

const detectPrompt = `You are reviewing a clinical trial protocol PDF for its eligibility criteria sections.
Find every inclusion-criteria and exclusion-criteria section. For each one, report:
- id: a short business identifier, e.g. "ELIG-1"
- label: the section heading as written, e.g. "Inclusion Criteria"
- pageStart / pageEnd: the 1-based physical page range the section spans
- kind: "inclusion" or "exclusion"

Respond with a JSON array only, one object per section, no prose.`

// DetectSections runs eligibility-section detection against the
// protocol's remote document handle.
func DetectSections(ctx context.Context, ds *docstore.Client, cfg *config.InterpretConfig, remoteFileURI string) ([]SectionInfo, error) {
	text, err := ds.GenerateContent(ctx, llmChain(cfg), remoteFileURI, detectPrompt, "")
	if err != nil {
		return nil, fmt.Errorf("detect eligibility sections: %w", err)
	}

	rows, err := decodeJSONArray(text)
	if err != nil {
		return nil, fmt.Errorf("parse eligibility section detection response: %w", err)
	}

	sections := make([]SectionInfo, 0, len(rows))
	for i, row := range rows {
		id := stringFromAny(row["id"])
		if id == "" {
			id = fmt.Sprintf("ELIG-%d", i+1)
		}
		kind := stringFromAny(row["kind"])
		if kind != "inclusion" && kind != "exclusion" {
			kind = "inclusion"
		}
		sections = append(sections, SectionInfo{
			ID:        id,
			Label:     stringFromAny(row["label"]),
			PageStart: intFromAny(row["pageStart"]),
			PageEnd:   intFromAny(row["pageEnd"]),
			Kind:      kind,
		})
	}
	return sections, nil
}
