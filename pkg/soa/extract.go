package soa

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
)

const extractPromptTemplate = `Extract the Schedule-of-Activities table spanning pages %d-%d (category %s) of this clinical trial protocol into structured JSON with the following top-level arrays: "visits", "activities", "activityInstances", "footnotes". Each visit must reference the activities performed at it by id. Respond with a JSON object only, no prose.`

// TableExtraction is one table's raw extracted payload plus the row
// counts recorded against its TableResult.
type TableExtraction struct {
	Payload         map[string]any
	VisitsCount     int
	ActivitiesCount int
	InstancesCount  int
	FootnotesCount  int
}

// ExtractTable runs full extraction for one confirmed table page range.
func ExtractTable(ctx context.Context, ds *docstore.Client, cfg *config.InterpretConfig, remoteFileURI string, page DetectedPage) (TableExtraction, error) {
	prompt := fmt.Sprintf(extractPromptTemplate, page.PageStart, page.PageEnd, page.Category)

	text, err := ds.GenerateContent(ctx, llmChain(cfg), remoteFileURI, prompt, "")
	if err != nil {
		return TableExtraction{}, fmt.Errorf("extract table %s: %w", page.ID, err)
	}

	payload, err := decodeJSONObject(text)
	if err != nil {
		return TableExtraction{}, fmt.Errorf("parse extraction for table %s: %w", page.ID, err)
	}

	return TableExtraction{
		Payload:         payload,
		VisitsCount:     arrayLen(payload, "visits"),
		ActivitiesCount: arrayLen(payload, "activities"),
		InstancesCount:  arrayLen(payload, "activityInstances"),
		FootnotesCount:  arrayLen(payload, "footnotes"),
	}, nil
}

func arrayLen(payload map[string]any, key string) int {
	arr, _ := payload[key].([]any)
	return len(arr)
}

// headers returns the flattened tabular projection's column headers,
// a fixed shape independent of any one table's payload.
func (e TableExtraction) headers() []string {
	return []string{"section", "id", "name"}
}

// rawRows projects the structured visits/activities/activityInstances/
// footnotes arrays into a flat (section, id, name) grid: TableResult's
// raw_rows field keeps a section-tagged denormalized view of the
// structured output_payload for the merge analyzer's header/content
// comparisons, since SOA extraction here returns USDM-shaped JSON
// rather than an OCR cell grid.
func (e TableExtraction) rawRows() [][]string {
	var rows [][]string
	for _, section := range []string{"visits", "activities", "activityInstances", "footnotes"} {
		arr, _ := e.Payload[section].([]any)
		for _, item := range arr {
			m, _ := item.(map[string]any)
			rows = append(rows, []string{section, stringFromAny(m["id"]), stringFromAny(m["name"])})
		}
	}
	return rows
}
