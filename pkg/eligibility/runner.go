package eligibility

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
	"github.com/codeready-toolchain/protocolx/pkg/interpret"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
)

// Runner drives one eligibility job's detect/extract/interpret/
// validate sub-phases.
type Runner struct {
	docstore  *docstore.Client
	interpret *config.InterpretConfig
	jobs      *services.JobService
	protocols *services.ProtocolService
	events    *services.EventService
	pipeline  *interpret.Pipeline
}

// New builds a Runner.
func New(
	ds *docstore.Client,
	interpretCfg *config.InterpretConfig,
	jobs *services.JobService,
	protocols *services.ProtocolService,
	events *services.EventService,
	pipeline *interpret.Pipeline,
) *Runner {
	return &Runner{
		docstore:  ds,
		interpret: interpretCfg,
		jobs:      jobs,
		protocols: protocols,
		events:    events,
		pipeline:  pipeline,
	}
}

// RunDetectSections detects eligibility criteria sections and pauses
// the job at awaiting_section_confirmation.
func (r *Runner) RunDetectSections(ctx context.Context, jobID string) error {
	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	protocol, err := r.protocols.GetProtocol(ctx, job.ProtocolID)
	if err != nil {
		return fmt.Errorf("load protocol: %w", err)
	}

	remoteURI, err := r.docstore.GetOrUpload(ctx, protocol.ID, protocol.Content)
	if err != nil {
		return fmt.Errorf("ensure remote file handle: %w", err)
	}

	sections, err := DetectSections(ctx, r.docstore, r.interpret, remoteURI)
	if err != nil {
		return fmt.Errorf("detect eligibility sections: %w", err)
	}

	if err := r.jobs.SetDetectedSections(ctx, jobID, map[string]any{"sections": sectionsToJSON(sections)}); err != nil {
		return fmt.Errorf("persist detected sections: %w", err)
	}

	r.emit(ctx, jobID, "eligibility_sections_detected", map[string]any{"section_count": len(sections)})

	_, err = r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "awaiting_section_confirmation"})
	return err
}

// RunExtractInterpretValidate extracts every confirmed section's
// criteria, runs them through the shared 12-stage interpretation
// pipeline, validates the result against the funnel-stage checklist,
// and completes the job. The caller is expected to have already
// transitioned the job to "extracting" when it recorded the confirmed
// sections.
func (r *Runner) RunExtractInterpretValidate(ctx context.Context, jobID string) error {
	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	protocol, err := r.protocols.GetProtocol(ctx, job.ProtocolID)
	if err != nil {
		return fmt.Errorf("load protocol: %w", err)
	}

	remoteURI, err := r.docstore.GetOrUpload(ctx, protocol.ID, protocol.Content)
	if err != nil {
		return fmt.Errorf("ensure remote file handle: %w", err)
	}

	sections := jsonToSections(job.ConfirmedSections)
	if len(sections) == 0 {
		return fmt.Errorf("job %s has no confirmed sections", jobID)
	}

	bySection := make(map[string]map[string]any, len(sections))
	for _, s := range sections {
		payload, err := ExtractSection(ctx, r.docstore, r.interpret, remoteURI, s)
		if err != nil {
			return fmt.Errorf("extract section %s: %w", s.ID, err)
		}
		bySection[s.ID] = payload
		r.emit(ctx, jobID, "eligibility_section_extracted", map[string]any{"section_id": s.ID})
	}

	merged := MergeCriteria(sections, bySection)

	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "interpreting"}); err != nil {
		return fmt.Errorf("transition to interpreting: %w", err)
	}

	progress := func(stageNumber int, stageName string, status interpret.Status) {
		r.emit(ctx, jobID, "stage_"+string(status), map[string]any{"stage_number": stageNumber, "stage_name": stageName})
	}

	finalDoc, _, runErr := r.pipeline.Run(ctx, interpret.Document(merged), progress)
	if runErr != nil {
		return fmt.Errorf("interpret eligibility criteria: %w", runErr)
	}

	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "validating"}); err != nil {
		return fmt.Errorf("transition to validating: %w", err)
	}

	stageResults := ValidateCriteria(finalDoc)
	finalDoc["_funnelValidation"] = stageResults
	slog.Info("eligibility funnel validation complete", "job_id", jobID, "stages", len(stageResults))

	if err := r.jobs.SetUnifiedDocument(ctx, jobID, finalDoc, nil, ""); err != nil {
		return fmt.Errorf("persist eligibility result: %w", err)
	}

	_, err = r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "completed"})
	return err
}

func (r *Runner) emit(ctx context.Context, jobID, eventType string, payload map[string]any) {
	if _, err := r.events.AppendEvent(ctx, models.CreateEventRequest{JobID: jobID, EventType: eventType, Payload: payload}); err != nil {
		slog.Warn("failed to append eligibility event", "job_id", jobID, "event_type", eventType, "error", err)
	}
}

func sectionsToJSON(sections []SectionInfo) []interface{} {
	out := make([]interface{}, len(sections))
	for i, s := range sections {
		out[i] = map[string]interface{}{
			"id":        s.ID,
			"label":     s.Label,
			"pageStart": s.PageStart,
			"pageEnd":   s.PageEnd,
			"kind":      s.Kind,
		}
	}
	return out
}

func jsonToSections(raw map[string]any) []SectionInfo {
	list, _ := raw["sections"].([]interface{})
	out := make([]SectionInfo, 0, len(list))
	for _, v := range list {
		m, _ := v.(map[string]interface{})
		if m == nil {
			continue
		}
		kind := stringFromAny(m["kind"])
		if kind != "inclusion" && kind != "exclusion" {
			kind = "inclusion"
		}
		out = append(out, SectionInfo{
			ID:        stringFromAny(m["id"]),
			Label:     stringFromAny(m["label"]),
			PageStart: intFromAny(m["pageStart"]),
			PageEnd:   intFromAny(m["pageEnd"]),
			Kind:      kind,
		})
	}
	return out
}
