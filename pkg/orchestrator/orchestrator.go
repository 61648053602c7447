// Package orchestrator runs the configured module registry over one
// protocol: per-module two-phase extraction with checkpointing,
// resilient continuation across module failures, and final combination
// into a unified document.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
	"github.com/codeready-toolchain/protocolx/pkg/extractor"
	"github.com/codeready-toolchain/protocolx/pkg/masking"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
)

// Combiner assembles a unified document from completed module results.
// Implemented by pkg/combiner; declared here so the orchestrator never
// imports a package downstream of it.
type Combiner interface {
	Combine(ctx context.Context, jobID string, protocol *ent.Protocol, results map[string]map[string]any) (map[string]any, error)
}

// Runner drives one job's module run to completion.
type Runner struct {
	jobs      *services.JobService
	protocols *services.ProtocolService
	results   *services.ModuleResultService
	events    *services.EventService
	extractor *extractor.Extractor
	docstore  *docstore.Client
	modules   *config.ModuleRegistry
	weights   config.QualityWeights
	combiner  Combiner
	masker    *masking.Service
}

// New builds a Runner. masker may be nil, in which case error messages
// are persisted and logged unmasked.
func New(
	jobs *services.JobService,
	protocols *services.ProtocolService,
	results *services.ModuleResultService,
	events *services.EventService,
	ext *extractor.Extractor,
	docstoreClient *docstore.Client,
	modules *config.ModuleRegistry,
	weights config.QualityWeights,
	combiner Combiner,
	masker *masking.Service,
) *Runner {
	return &Runner{
		jobs:      jobs,
		protocols: protocols,
		results:   results,
		events:    events,
		extractor: ext,
		docstore:  docstoreClient,
		modules:   modules,
		weights:   weights,
		combiner:  combiner,
		masker:    masker,
	}
}

// maskMessage redacts direct identifiers from an error message before
// it is persisted or emitted; a raised error can echo back a fragment
// of an extracted protocol value (e.g. a schema validation message
// quoting the offending field).
func (r *Runner) maskMessage(msg string) string {
	if r.masker == nil {
		return msg
	}
	return r.masker.Mask(msg)
}

// Run executes every pending module of jobID's protocol in declared
// order, checkpointing after each. resume, when true,
// skips modules already recorded as succeeded.
func (r *Runner) Run(ctx context.Context, jobID string, resume bool) error {
	log := slog.With("job_id", jobID)

	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %s: %w", jobID, err)
	}

	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "running"}); err != nil {
		return fmt.Errorf("transition job %s to running: %w", jobID, err)
	}
	r.emit(ctx, jobID, "job_started", nil, nil)

	protocol, err := r.protocols.GetProtocol(ctx, job.ProtocolID)
	if err != nil {
		return r.failJob(ctx, jobID, fmt.Errorf("get protocol %s: %w", job.ProtocolID, err))
	}

	remoteURI, err := r.docstore.GetOrUpload(ctx, protocol.ID, protocol.Content)
	if err != nil {
		return r.failJob(ctx, jobID, fmt.Errorf("ensure remote file handle: %w", err))
	}

	pending, err := r.pendingModules(ctx, jobID, resume)
	if err != nil {
		return r.failJob(ctx, jobID, err)
	}

	input := extractor.Input{
		ProtocolID:    protocol.ID,
		ContentHash:   protocol.ContentHash,
		RemoteFileURI: remoteURI,
	}

	var failedModules []string
	for i, moduleID := range pending {
		percent := float64(i) / float64(max(len(pending), 1)) * 100
		moduleID := moduleID
		if err := r.jobs.UpdateProgress(ctx, jobID, models.UpdateJobProgressRequest{
			ProgressPercent: percent,
			CurrentModule:   &moduleID,
		}); err != nil {
			log.Warn("failed to record progress", "module_id", moduleID, "error", err)
		}

		r.emit(ctx, jobID, "module_started", &moduleID, nil)

		result, err := r.extractor.ExtractWithCache(ctx, moduleID, input)
		if err != nil {
			log.Error("module extraction failed", "module_id", moduleID, "error", err)
			failedModules = append(failedModules, moduleID)
			r.emit(ctx, jobID, "module_failed", &moduleID, map[string]any{"error": r.maskMessage(err.Error())})
			continue
		}

		if err := r.persistModuleResult(ctx, jobID, moduleID, result); err != nil {
			log.Error("failed to persist module result", "module_id", moduleID, "error", err)
			failedModules = append(failedModules, moduleID)
			r.emit(ctx, jobID, "module_failed", &moduleID, map[string]any{"error": r.maskMessage(err.Error())})
			continue
		}

		r.emit(ctx, jobID, "module_completed", &moduleID, map[string]any{
			"composite_score": result.Score.Composite,
			"from_cache":      result.FromCache,
		})
	}

	completed, err := r.results.ListForJob(ctx, jobID)
	if err != nil {
		return r.failJob(ctx, jobID, fmt.Errorf("list module results: %w", err))
	}

	byModule := make(map[string]map[string]any, len(completed))
	for _, mr := range completed {
		if mr.Status == "succeeded" {
			byModule[mr.ModuleID] = mr.Data
		}
	}

	doc, combineErr := r.combiner.Combine(ctx, jobID, protocol, byModule)
	if combineErr != nil {
		// Partial-results guarantee: even when combination itself fails,
		// persist whatever module data exists rather than nothing.
		log.Error("combiner failed, persisting partial results only", "error", combineErr)
		doc = map[string]any{"modules": byModule}
	}

	if err := r.jobs.SetUnifiedDocument(ctx, jobID, doc, failedModules, ""); err != nil {
		return r.failJob(ctx, jobID, fmt.Errorf("save unified document: %w", err))
	}

	finalStatus := "completed"
	if len(failedModules) > 0 {
		finalStatus = "completed_with_errors"
	}
	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: finalStatus}); err != nil {
		return fmt.Errorf("transition job %s to %s: %w", jobID, finalStatus, err)
	}
	r.emit(ctx, jobID, "job_completed", nil, map[string]any{"failed_modules": failedModules})

	return nil
}

// pendingModules computes the modules to run: all enabled modules on a
// fresh run, or only those not yet completed when resume is true.
func (r *Runner) pendingModules(ctx context.Context, jobID string, resume bool) ([]string, error) {
	enabled := r.modules.Enabled()
	if !resume {
		return enabled, nil
	}

	done, err := r.results.CompletedModuleIDs(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("compute completed modules: %w", err)
	}

	pending := make([]string, 0, len(enabled))
	for _, id := range enabled {
		if !done[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

func (r *Runner) persistModuleResult(ctx context.Context, jobID, moduleID string, result extractor.Result) error {
	mr, err := r.results.Upsert(ctx, models.CreateModuleResultRequest{
		JobID:    jobID,
		ModuleID: moduleID,
		Data:     result.Data,
	})
	if err != nil {
		return fmt.Errorf("upsert module result: %w", err)
	}

	composite := result.Score.Composite
	_, err = r.results.RecordScores(ctx, mr.ID, models.UpdateModuleResultScoresRequest{
		AccuracyScore:        &result.Score.Accuracy,
		CompletenessScore:    &result.Score.Completeness,
		SchemaAdherenceScore: &result.Score.SchemaAdherence,
		ProvenanceScore:      &result.Score.Provenance,
		TerminologyScore:     &result.Score.Terminology,
		CompositeScore:       &composite,
		Feedback:             result.Score.Feedback,
	}, true)
	if err != nil {
		return fmt.Errorf("record module result scores: %w", err)
	}
	return nil
}

// failJob records a top-level run failure, moving the job to `failed`.
// Run calls it for errors outside a single module's extraction,
// including listing module results and saving the unified document
// after the module loop.
func (r *Runner) failJob(ctx context.Context, jobID string, cause error) error {
	msg := r.maskMessage(cause.Error())
	if _, err := r.jobs.UpdateStatus(context.Background(), jobID, models.UpdateJobStatusRequest{
		Status:       "failed",
		ErrorMessage: &msg,
	}); err != nil {
		slog.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
	r.emit(context.Background(), jobID, "job_failed", nil, map[string]any{"error": msg})
	return cause
}

func (r *Runner) emit(ctx context.Context, jobID, eventType string, moduleID *string, payload map[string]any) {
	_, err := r.events.AppendEvent(ctx, models.CreateEventRequest{
		JobID:     jobID,
		EventType: eventType,
		ModuleID:  moduleID,
		Payload:   payload,
	})
	if err != nil {
		slog.Warn("failed to append event", "job_id", jobID, "event_type", eventType, "error", err)
	}
}

