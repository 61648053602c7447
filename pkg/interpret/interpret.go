// Package interpret runs the 12-stage SOA interpretation pipeline: a
// deterministic sequence of stages operating on a shared document that
// grows with each stage. Stages keep no hidden in-memory state between
// them; everything a stage needs is in the document. Run does not
// checkpoint stages and always starts from stage 1.
package interpret

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/llm"
)

// Document is the shared, growing interpretation document. It is kept
// as a plain JSON-shaped map rather than a fixed struct because every
// stage adds fields the earlier stages knew nothing about.
type Document = map[string]any

// Status is a stage's outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// StageResult reports one stage's outcome for progress tracking and,
// on StatusError, for halting the pipeline.
type StageResult struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReviewItem is one item surfaced to a human reviewer by any stage,
// collected into a single package by stage 10.
type ReviewItem struct {
	Stage      string  `json:"stage"`
	Path       string  `json:"path"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ProgressFunc receives (stage_number, stage_name, status) after every
// stage completes.
type ProgressFunc func(stageNumber int, stageName string, status Status)

// stage is the internal stage signature: run(document, config) ->
// (document, stage_result), with the LLM client and context threaded
// in rather than closed over so stages stay independently testable.
type stage struct {
	name string
	run  func(ctx context.Context, doc Document, p *Pipeline) (Document, StageResult)
}

// Pipeline runs the 12 stages in order against a protocol's LLM
// fallback chain and on-disk domain-categorization cache.
type Pipeline struct {
	llmClient *llm.Client
	cfg       *config.InterpretConfig
	domainMemo *domainMemo
	stages    []stage
}

// New builds a Pipeline. llmClient may be nil in tests that only
// exercise deterministic stages.
func New(llmClient *llm.Client, cfg *config.InterpretConfig) *Pipeline {
	p := &Pipeline{
		llmClient:  llmClient,
		cfg:        cfg,
		domainMemo: newDomainMemo(cfg.DomainCategorizationCacheDir),
	}
	p.stages = []stage{
		{"domain_categorization", domainCategorization},
		{"activity_component_expansion", activityComponentExpansion},
		{"hierarchy_building", hierarchyBuilding},
		{"alternative_resolution", alternativeResolution},
		{"specimen_enrichment", specimenEnrichment},
		{"conditional_expansion", conditionalExpansion},
		{"timing_distribution", timingDistribution},
		{"cycle_expansion", cycleExpansion},
		{"protocol_mining", protocolMining},
		{"human_review_assembly", humanReviewAssembly},
		{"schedule_generation", scheduleGeneration},
		{"compliance_check", complianceCheck},
	}
	return p
}

// Run executes every stage against doc in order, calling progress
// after each. It halts immediately on a StatusError result; a
// StatusWarning result is recorded but does not block.
func (p *Pipeline) Run(ctx context.Context, doc Document, progress ProgressFunc) (Document, []StageResult, error) {
	results := make([]StageResult, 0, len(p.stages))

	for i, s := range p.stages {
		number := i + 1
		next, result := s.run(ctx, doc, p)
		result.Number = number
		result.Name = s.name
		results = append(results, result)

		if progress != nil {
			progress(number, s.name, result.Status)
		}

		slog.Debug("interpretation stage completed",
			"stage", number, "name", s.name, "status", result.Status, "message", result.Message)

		doc = next
		if result.Status == StatusError {
			return doc, results, fmt.Errorf("interpretation stage %d (%s) failed: %s", number, s.name, result.Message)
		}
	}

	return doc, results, nil
}

// addReviewItem appends item to doc's accumulated review queue,
// read back by stage 10.
func addReviewItem(doc Document, item ReviewItem) {
	raw, _ := doc["_reviewItems"].([]any)
	doc["_reviewItems"] = append(raw, map[string]any{
		"stage":      item.Stage,
		"path":       item.Path,
		"reason":     item.Reason,
		"confidence": item.Confidence,
	})
}

// decision classifies confidence using the pipeline's configured bands.
func (p *Pipeline) decision(confidence float64) config.Decision {
	return p.cfg.Bands.Classify(confidence)
}

func asSlice(doc Document, key string) []any {
	v, _ := doc[key].([]any)
	return v
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
