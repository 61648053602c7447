package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/mergegroupresult"
	"github.com/codeready-toolchain/protocolx/ent/mergeplan"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/google/uuid"
)

// MergePlanService persists the SOA merge analyzer's proposed
// table->group assignment and the caller's eventual confirmation of it.
type MergePlanService struct {
	client *ent.Client
}

// NewMergePlanService creates a new MergePlanService.
func NewMergePlanService(client *ent.Client) *MergePlanService {
	return &MergePlanService{client: client}
}

// Create records the analyzer's proposed merge groups for a job,
// leaving the plan in "proposed" status awaiting confirmation.
func (s *MergePlanService) Create(ctx context.Context, req models.CreateMergePlanRequest) (*ent.MergePlan, error) {
	if req.JobID == "" {
		return nil, NewValidationError("job_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mp, err := s.client.MergePlan.Create().
		SetID(uuid.NewString()).
		SetJobID(req.JobID).
		SetProposedGroups(mergeGroupsToJSON(req.ProposedGroups)).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create merge plan: %w", err)
	}
	return mp, nil
}

// Confirm records the caller-supplied (possibly edited) merge groups
// that end an `awaiting_merge_confirmation` pause.
func (s *MergePlanService) Confirm(ctx context.Context, id string, req models.ConfirmMergePlanRequest) (*ent.MergePlan, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mp, err := s.client.MergePlan.UpdateOneID(id).
		SetConfirmedGroups(mergeGroupsToJSON(req.ConfirmedGroups)).
		SetStatus("confirmed").
		SetConfirmedAt(time.Now()).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("confirm merge plan: %w", err)
	}
	return mp, nil
}

// MarkExecuted records that the combiner has folded every confirmed
// merge group into its MergeGroupResult rows.
func (s *MergePlanService) MarkExecuted(ctx context.Context, id string) error {
	if err := s.client.MergePlan.UpdateOneID(id).SetStatus("executed").Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("mark merge plan executed: %w", err)
	}
	return nil
}

// Get retrieves a merge plan by id.
func (s *MergePlanService) Get(ctx context.Context, id string) (*ent.MergePlan, error) {
	mp, err := s.client.MergePlan.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get merge plan: %w", err)
	}
	return mp, nil
}

// ForJob returns the most recently created merge plan for a job, or
// ErrNotFound if the job has none yet.
func (s *MergePlanService) ForJob(ctx context.Context, jobID string) (*ent.MergePlan, error) {
	mp, err := s.client.MergePlan.Query().
		Where(mergeplan.JobIDEQ(jobID)).
		Order(ent.Desc(mergeplan.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get merge plan for job: %w", err)
	}
	return mp, nil
}

// mergeGroupsToJSON flattens typed MergeGroup values into the []any
// shape the ent JSON column stores, preserving proposal order.
func mergeGroupsToJSON(groups []models.MergeGroup) []interface{} {
	out := make([]interface{}, len(groups))
	for i, g := range groups {
		out[i] = map[string]interface{}{
			"group_label":      g.GroupLabel,
			"table_result_ids": g.TableResultIDs,
			"merge_type":       g.MergeType,
			"decision_level":   g.DecisionLevel,
			"confidence":       g.Confidence,
			"reasoning":        g.Reasoning,
		}
	}
	return out
}

// MergeGroupResultService persists the combiner's reconciled output for
// one confirmed merge group.
type MergeGroupResultService struct {
	client *ent.Client
}

// NewMergeGroupResultService creates a new MergeGroupResultService.
func NewMergeGroupResultService(client *ent.Client) *MergeGroupResultService {
	return &MergeGroupResultService{client: client}
}

// Create records one confirmed merge group's combined rows and the
// per-stage results of the interpretation pipeline run against it.
func (s *MergeGroupResultService) Create(ctx context.Context, mergePlanID, groupLabel string, mergedRows [][]string, mergedHeaders []string, provenance map[string]interface{}, stageResults []interface{}) (*ent.MergeGroupResult, error) {
	if mergePlanID == "" {
		return nil, NewValidationError("merge_plan_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	create := s.client.MergeGroupResult.Create().
		SetID(uuid.NewString()).
		SetMergePlanID(mergePlanID).
		SetGroupLabel(groupLabel).
		SetMergedRows(mergedRows).
		SetMergedHeaders(mergedHeaders)
	if provenance != nil {
		create = create.SetProvenance(provenance)
	}
	if stageResults != nil {
		create = create.SetStageResults(stageResults)
	}

	mgr, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create merge group result: %w", err)
	}
	return mgr, nil
}

// ListForPlan returns every merge group result produced for a plan.
func (s *MergeGroupResultService) ListForPlan(ctx context.Context, mergePlanID string) ([]*ent.MergeGroupResult, error) {
	results, err := s.client.MergeGroupResult.Query().
		Where(mergegroupresult.MergePlanIDEQ(mergePlanID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list merge group results for plan: %w", err)
	}
	return results, nil
}
