// Package soa runs the Schedule-of-Activities pipeline: detect SOA
// table page ranges, extract each confirmed table, deterministically
// group related tables into merge candidates, and fold each confirmed
// group through the shared interpretation pipeline. Each sub-phase is
// one pipelineworker invocation; the job state machine's
// awaiting_page_confirmation and awaiting_merge_confirmation pause
// states are the only points where an external caller's input is
// required before the next sub-phase can be spawned.
package soa

import "github.com/codeready-toolchain/protocolx/pkg/config"

// Category is a detected table's SOA classification.
type Category string

const (
	CategoryMainSOA Category = "MAIN_SOA"
	CategoryPKSOA   Category = "PK_SOA"
	CategorySafety  Category = "SAFETY_SOA"
	CategoryPD      Category = "PD_SOA"
)

// knownCategories is used to fall back to CategoryMainSOA when the
// detector returns something unrecognized, matching the original
// worker's default.
var knownCategories = map[string]bool{
	string(CategoryMainSOA): true,
	string(CategoryPKSOA):   true,
	string(CategorySafety):  true,
	string(CategoryPD):      true,
}

func normalizeCategory(raw string) string {
	if knownCategories[raw] {
		return raw
	}
	return string(CategoryMainSOA)
}

// DetectedPage is one table's page range as surfaced to the caller for
// confirmation, before extraction runs.
type DetectedPage struct {
	ID        string `json:"id"`
	PageStart int    `json:"pageStart"`
	PageEnd   int    `json:"pageEnd"`
	Category  string `json:"category"`
}

// llmChain returns the fallback chain detection/extraction calls use.
// SOA detection and extraction are not configured per-module like the
// two-phase extractor's modules; they share the interpretation
// pipeline's chain since both ultimately feed the same 12-stage
// interpreter.
func llmChain(cfg *config.InterpretConfig) config.LLMFallbackChain {
	return cfg.LLMChain
}
