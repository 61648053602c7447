// Package eligibility runs the eligibility-criteria pipeline: detect
// the inclusion/exclusion criteria sections of a protocol, extract
// each confirmed section's criteria, run them through the shared
// 12-stage interpretation pipeline, and validate the result against
// the fixed eligibility funnel-stage checklist before the job
// completes.
package eligibility

import "github.com/codeready-toolchain/protocolx/pkg/config"

// SectionInfo is one detected eligibility criteria section, surfaced
// to the caller for confirmation before extraction runs.
type SectionInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	PageStart int    `json:"pageStart"`
	PageEnd   int    `json:"pageEnd"`
	Kind      string `json:"kind"` // "inclusion" or "exclusion"
}

// FunnelStage is one of the fixed classification stages eligibility
// criteria are checked against during validation.
type FunnelStage struct {
	Number int
	Name   string
}

// DefaultFunnelStages mirrors the eight standard feasibility-funnel
// classification stages: every extracted criterion is checked against
// each in order, and one that matches none is filed under stage 8.
var DefaultFunnelStages = []FunnelStage{
	{1, "Disease Indication"},
	{2, "Demographics"},
	{3, "Organ Function"},
	{4, "Treatment History"},
	{5, "Comorbidities"},
	{6, "Lab Values"},
	{7, "Concomitant Medications"},
	{8, "Other Requirements"},
}

func llmChain(cfg *config.InterpretConfig) config.LLMFallbackChain {
	return cfg.LLMChain
}
