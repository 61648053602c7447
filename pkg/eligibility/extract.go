package eligibility

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
)

const extractPromptTemplate = `Extract every discrete eligibility criterion from the %q section (pages %d-%d, kind %s) of this clinical trial protocol. Respond with a JSON object containing one array, "criteria", each entry an object with "id" (short identifier), "text" (the criterion verbatim), and "kind" ("inclusion" or "exclusion"). No prose.`

// ExtractSection extracts the discrete criteria of one confirmed
// eligibility section.
func ExtractSection(ctx context.Context, ds *docstore.Client, cfg *config.InterpretConfig, remoteFileURI string, section SectionInfo) (map[string]any, error) {
	prompt := fmt.Sprintf(extractPromptTemplate, section.Label, section.PageStart, section.PageEnd, section.Kind)

	text, err := ds.GenerateContent(ctx, llmChain(cfg), remoteFileURI, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("extract eligibility section %s: %w", section.ID, err)
	}

	payload, err := decodeJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("parse extraction for eligibility section %s: %w", section.ID, err)
	}
	return payload, nil
}

// MergeCriteria flattens every section's extracted "criteria" array
// into one combined document keyed by section id, the shape the
// shared interpretation pipeline and the funnel-stage validator both
// consume.
func MergeCriteria(sections []SectionInfo, bySection map[string]map[string]any) map[string]any {
	allCriteria := make([]any, 0)
	sectionSummaries := make([]any, 0, len(sections))

	for _, s := range sections {
		payload := bySection[s.ID]
		criteria, _ := payload["criteria"].([]any)
		allCriteria = append(allCriteria, criteria...)
		sectionSummaries = append(sectionSummaries, map[string]any{
			"id":             s.ID,
			"label":          s.Label,
			"kind":           s.Kind,
			"criteria_count": len(criteria),
		})
	}

	return map[string]any{
		"sections": sectionSummaries,
		"criteria": allCriteria,
	}
}
