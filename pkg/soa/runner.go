package soa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
	"github.com/codeready-toolchain/protocolx/pkg/interpret"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
)

// Runner drives one SOA job's detect/extract/analyze/interpret
// sub-phases. Each exported method is one pipelineworker invocation;
// the caller (cmd/pipelineworker) selects which to run from the
// PIPELINE_SUBPHASE env var the confirm handlers set when they spawn
// the next sub-phase.
type Runner struct {
	docstore  *docstore.Client
	interpret *config.InterpretConfig
	jobs      *services.JobService
	protocols *services.ProtocolService
	tables    *services.TableResultService
	plans     *services.MergePlanService
	groups    *services.MergeGroupResultService
	events    *services.EventService
	pipeline  *interpret.Pipeline
}

// New builds a Runner.
func New(
	ds *docstore.Client,
	interpretCfg *config.InterpretConfig,
	jobs *services.JobService,
	protocols *services.ProtocolService,
	tables *services.TableResultService,
	plans *services.MergePlanService,
	groups *services.MergeGroupResultService,
	events *services.EventService,
	pipeline *interpret.Pipeline,
) *Runner {
	return &Runner{
		docstore:  ds,
		interpret: interpretCfg,
		jobs:      jobs,
		protocols: protocols,
		tables:    tables,
		plans:     plans,
		groups:    groups,
		events:    events,
		pipeline:  pipeline,
	}
}

// RunDetectPages detects SOA table page ranges and pauses the job at
// awaiting_page_confirmation for external confirmation.
func (r *Runner) RunDetectPages(ctx context.Context, jobID string) error {
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

	pages, err := DetectPages(ctx, r.docstore, r.interpret, remoteURI)
	if err != nil {
		return fmt.Errorf("detect SOA pages: %w", err)
	}

	if err := r.jobs.SetDetectedPages(ctx, jobID, detectedPagesToJSON(pages)); err != nil {
		return fmt.Errorf("persist detected pages: %w", err)
	}

	r.emit(ctx, jobID, "soa_pages_detected", map[string]any{"table_count": len(pages)})

	_, err = r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "awaiting_page_confirmation"})
	return err
}

// RunExtractTables extracts every confirmed table, persists one
// TableResult row per table, runs the 8-level merge analyzer over the
// results, and pauses the job at awaiting_merge_confirmation. The
// caller is expected to have already transitioned the job to
// "extracting" when it recorded the confirmed pages (symmetric with
// how the eligibility confirm handler transitions synchronously).
func (r *Runner) RunExtractTables(ctx context.Context, jobID string) error {
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

	confirmed := jsonToDetectedPages(job.ConfirmedPages)
	if len(confirmed) == 0 {
		return fmt.Errorf("job %s has no confirmed pages", jobID)
	}

	var created []*ent.TableResult
	for _, page := range confirmed {
		extraction, err := ExtractTable(ctx, r.docstore, r.interpret, remoteURI, page)
		if err != nil {
			return fmt.Errorf("extract table %s: %w", page.ID, err)
		}

		tr, err := r.tables.Create(ctx, models.CreateTableResultRequest{
			JobID:      jobID,
			TableLabel: page.ID,
			Category:   page.Category,
			PageStart:  page.PageStart,
			PageEnd:    page.PageEnd,
			RawRows:    extraction.rawRows(),
			ColumnHeaders: extraction.headers(),
		})
		if err != nil {
			return fmt.Errorf("persist table result %s: %w", page.ID, err)
		}

		if err := r.tables.SetExtracted(ctx, tr.ID, extraction.Payload, extraction.VisitsCount, extraction.ActivitiesCount, extraction.InstancesCount, extraction.FootnotesCount); err != nil {
			return fmt.Errorf("persist extraction for table %s: %w", page.ID, err)
		}
		tr.OutputPayload = extraction.Payload
		tr.ColumnHeaders = extraction.headers()
		created = append(created, tr)

		r.emit(ctx, jobID, "soa_table_extracted", map[string]any{"table_label": page.ID})
	}

	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "saving"}); err != nil {
		return fmt.Errorf("transition to saving: %w", err)
	}

	all, err := r.tables.ListForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list table results: %w", err)
	}

	if _, err := r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "analyzing_merges"}); err != nil {
		return fmt.Errorf("transition to analyzing_merges: %w", err)
	}

	proposedGroups := AnalyzeMerges(all)
	if _, err := r.plans.Create(ctx, models.CreateMergePlanRequest{JobID: jobID, ProposedGroups: proposedGroups}); err != nil {
		return fmt.Errorf("persist merge plan: %w", err)
	}

	r.emit(ctx, jobID, "soa_merge_plan_proposed", map[string]any{"group_count": len(proposedGroups)})

	_, err = r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "awaiting_merge_confirmation"})
	return err
}

// RunInterpret combines every confirmed merge group's member tables,
// runs the shared 12-stage interpretation pipeline over each, and
// completes the job. The caller is expected to have already
// transitioned the job to "interpreting" when it recorded the
// confirmed merge groups.
func (r *Runner) RunInterpret(ctx context.Context, jobID string) error {
	plan, err := r.plans.ForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load merge plan: %w", err)
	}

	tables, err := r.tables.ListForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list table results: %w", err)
	}
	byID := make(map[string]*ent.TableResult, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}

	confirmedGroups := jsonToMergeGroups(plan.ConfirmedGroups)
	for i, group := range confirmedGroups {
		members := make([]*ent.TableResult, 0, len(group.TableResultIDs))
		for _, id := range group.TableResultIDs {
			if t, ok := byID[id]; ok {
				members = append(members, t)
			}
		}
		if len(members) == 0 {
			slog.Warn("merge group has no resolvable tables", "job_id", jobID, "group_label", group.GroupLabel)
			continue
		}

		mergedRows, mergedHeaders, provenance := CombineGroup(members)
		slog.Info("combining merge group", "job_id", jobID, "group", groupDisplayName(group.GroupLabel, group.TableResultIDs))

		doc := interpret.Document{
			"groupLabel":    group.GroupLabel,
			"mergedHeaders": mergedHeaders,
			"mergedRows":    mergedRows,
		}

		progress := func(stageNumber int, stageName string, status interpret.Status) {
			r.emit(ctx, jobID, "stage_"+string(status), map[string]any{
				"group_label":  group.GroupLabel,
				"stage_number": stageNumber,
				"stage_name":   stageName,
			})
		}

		finalDoc, stageResults, runErr := r.pipeline.Run(ctx, doc, progress)
		if runErr != nil {
			return fmt.Errorf("interpret merge group %s: %w", group.GroupLabel, runErr)
		}
		provenance["interpreted_document"] = finalDoc

		mgr, err := r.groups.Create(ctx, plan.ID, group.GroupLabel, mergedRows, mergedHeaders, provenance, stageResultsToJSON(stageResults))
		if err != nil {
			return fmt.Errorf("persist merge group result %d: %w", i, err)
		}

		for _, t := range members {
			if err := r.tables.AssignMergeGroup(ctx, t.ID, mgr.ID); err != nil {
				return fmt.Errorf("assign table %s to merge group %s: %w", t.ID, mgr.ID, err)
			}
		}
	}

	if err := r.plans.MarkExecuted(ctx, plan.ID); err != nil {
		return fmt.Errorf("mark merge plan executed: %w", err)
	}

	_, err = r.jobs.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{Status: "completed"})
	return err
}

func (r *Runner) emit(ctx context.Context, jobID, eventType string, payload map[string]any) {
	if _, err := r.events.AppendEvent(ctx, models.CreateEventRequest{JobID: jobID, EventType: eventType, Payload: payload}); err != nil {
		slog.Warn("failed to append SOA event", "job_id", jobID, "event_type", eventType, "error", err)
	}
}

func detectedPagesToJSON(pages []DetectedPage) []interface{} {
	out := make([]interface{}, len(pages))
	for i, p := range pages {
		out[i] = map[string]interface{}{
			"id":        p.ID,
			"pageStart": p.PageStart,
			"pageEnd":   p.PageEnd,
			"category":  p.Category,
		}
	}
	return out
}

func jsonToDetectedPages(raw []interface{}) []DetectedPage {
	out := make([]DetectedPage, 0, len(raw))
	for _, v := range raw {
		m, _ := v.(map[string]interface{})
		if m == nil {
			continue
		}
		out = append(out, DetectedPage{
			ID:        stringFromAny(m["id"]),
			PageStart: intFromAny(m["pageStart"]),
			PageEnd:   intFromAny(m["pageEnd"]),
			Category:  normalizeCategory(stringFromAny(m["category"])),
		})
	}
	return out
}

func jsonToMergeGroups(raw []interface{}) []models.MergeGroup {
	out := make([]models.MergeGroup, 0, len(raw))
	for _, v := range raw {
		m, _ := v.(map[string]interface{})
		if m == nil {
			continue
		}
		idsRaw, _ := m["table_result_ids"].([]interface{})
		ids := make([]string, 0, len(idsRaw))
		for _, id := range idsRaw {
			ids = append(ids, stringFromAny(id))
		}
		confidence, _ := m["confidence"].(float64)
		out = append(out, models.MergeGroup{
			GroupLabel:     stringFromAny(m["group_label"]),
			TableResultIDs: ids,
			MergeType:      stringFromAny(m["merge_type"]),
			DecisionLevel:  intFromAny(m["decision_level"]),
			Confidence:     confidence,
			Reasoning:      stringFromAny(m["reasoning"]),
		})
	}
	return out
}

// stageResultsToJSON flattens typed interpretation stage results into
// the []any shape the MergeGroupResult JSON column stores.
func stageResultsToJSON(results []interpret.StageResult) []interface{} {
	out := make([]interface{}, len(results))
	for i, r := range results {
		raw, _ := json.Marshal(r)
		var m map[string]interface{}
		_ = json.Unmarshal(raw, &m)
		out[i] = m
	}
	return out
}
