package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/moduleresult"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/google/uuid"
)

// ModuleResultService persists one module's extraction output and
// quality scores against a job. One row per (job_id, module_id).
type ModuleResultService struct {
	client *ent.Client
}

// NewModuleResultService creates a new ModuleResultService.
func NewModuleResultService(client *ent.Client) *ModuleResultService {
	return &ModuleResultService{client: client}
}

// Upsert creates or overwrites the result row for a (job, module) pair,
// matching the module orchestrator's resilient-continuation semantics:
// retrying a failed module replaces its prior row rather than
// accumulating history.
func (s *ModuleResultService) Upsert(httpCtx context.Context, req models.CreateModuleResultRequest) (*ent.ModuleResult, error) {
	if req.JobID == "" {
		return nil, NewValidationError("job_id", "required")
	}
	if req.ModuleID == "" {
		return nil, NewValidationError("module_id", "required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := s.client.ModuleResult.Query().
		Where(moduleresult.JobIDEQ(req.JobID), moduleresult.ModuleIDEQ(req.ModuleID)).
		Only(ctx)
	if err != nil && !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query existing module result: %w", err)
	}

	if existing != nil {
		mr, err := existing.Update().
			SetData(req.Data).
			SetStatus("pending").
			Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("update module result: %w", err)
		}
		return mr, nil
	}

	mr, err := s.client.ModuleResult.Create().
		SetID(uuid.NewString()).
		SetJobID(req.JobID).
		SetModuleID(req.ModuleID).
		SetData(req.Data).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create module result: %w", err)
	}
	return mr, nil
}

// RecordScores attaches a quality evaluation's dimension scores and
// feedback to a module result, marking it succeeded or failed.
func (s *ModuleResultService) RecordScores(ctx context.Context, id string, req models.UpdateModuleResultScoresRequest, succeeded bool) (*ent.ModuleResult, error) {
	update := s.client.ModuleResult.UpdateOneID(id).
		SetSurgicalRetryUsed(req.SurgicalRetryUsed).
		SetCompletedAt(time.Now())

	if req.AccuracyScore != nil {
		update = update.SetAccuracyScore(*req.AccuracyScore)
	}
	if req.CompletenessScore != nil {
		update = update.SetCompletenessScore(*req.CompletenessScore)
	}
	if req.SchemaAdherenceScore != nil {
		update = update.SetSchemaAdherenceScore(*req.SchemaAdherenceScore)
	}
	if req.ProvenanceScore != nil {
		update = update.SetProvenanceScore(*req.ProvenanceScore)
	}
	if req.TerminologyScore != nil {
		update = update.SetTerminologyScore(*req.TerminologyScore)
	}
	if req.CompositeScore != nil {
		update = update.SetCompositeScore(*req.CompositeScore)
	}
	if len(req.Feedback) > 0 {
		update = update.SetFeedback(req.Feedback)
	}
	if succeeded {
		update = update.SetStatus("succeeded")
	} else {
		update = update.SetStatus("failed")
	}

	mr, err := update.Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("record module result scores: %w", err)
	}
	return mr, nil
}

// IncrementRetryCount bumps a module result's retry counter.
func (s *ModuleResultService) IncrementRetryCount(ctx context.Context, id string) error {
	mr, err := s.client.ModuleResult.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get module result for retry increment: %w", err)
	}
	return s.client.ModuleResult.UpdateOneID(id).SetRetryCount(mr.RetryCount + 1).Exec(ctx)
}

// ListForJob returns every module result recorded against a job.
func (s *ModuleResultService) ListForJob(ctx context.Context, jobID string) ([]*ent.ModuleResult, error) {
	results, err := s.client.ModuleResult.Query().
		Where(moduleresult.JobIDEQ(jobID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list module results for job: %w", err)
	}
	return results, nil
}

// CompletedModuleIDs returns the set of module ids already succeeded
// for jobID, used by the orchestrator's resume computation.
func (s *ModuleResultService) CompletedModuleIDs(ctx context.Context, jobID string) (map[string]bool, error) {
	results, err := s.client.ModuleResult.Query().
		Where(moduleresult.JobIDEQ(jobID), moduleresult.StatusEQ("succeeded")).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query completed module ids: %w", err)
	}

	out := make(map[string]bool, len(results))
	for _, r := range results {
		out[r.ModuleID] = true
	}
	return out, nil
}
