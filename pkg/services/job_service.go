package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/job"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/statemachine"
	"github.com/google/uuid"
)

// JobService manages the lifecycle of module_extraction, soa, and
// eligibility jobs. UpdateStatus validates every transition against
// pkg/statemachine's per-kind table before persisting it.
type JobService struct {
	client *ent.Client
}

// NewJobService creates a new JobService.
func NewJobService(client *ent.Client) *JobService {
	return &JobService{client: client}
}

// CreateJob queues a new job against a protocol.
func (s *JobService) CreateJob(httpCtx context.Context, req models.CreateJobRequest) (*ent.Job, error) {
	if req.ProtocolID == "" {
		return nil, NewValidationError("protocol_id", "required")
	}
	if req.Kind == "" {
		return nil, NewValidationError("kind", "required")
	}

	initialStatus, err := statemachine.InitialState(statemachine.Kind(req.Kind))
	if err != nil {
		return nil, NewValidationError("kind", fmt.Sprintf("unknown kind %q", req.Kind))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	j, err := s.client.Job.Create().
		SetID(uuid.NewString()).
		SetProtocolID(req.ProtocolID).
		SetKind(job.Kind(req.Kind)).
		SetStatus(initialStatus).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return j, nil
}

// GetJob retrieves a job by id.
func (s *JobService) GetJob(ctx context.Context, id string) (*ent.Job, error) {
	j, err := s.client.Job.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListJobs lists jobs with filtering and pagination.
func (s *JobService) ListJobs(ctx context.Context, filters models.JobFilters) (*models.JobListResponse, error) {
	query := s.client.Job.Query()

	if filters.Status != "" {
		query = query.Where(job.StatusEQ(filters.Status))
	}
	if filters.Kind != "" {
		query = query.Where(job.KindEQ(job.Kind(filters.Kind)))
	}
	if filters.ProtocolID != "" {
		query = query.Where(job.ProtocolIDEQ(filters.ProtocolID))
	}
	if !filters.IncludeDeleted {
		query = query.Where(job.DeletedAtIsNil())
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	jobs, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(job.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return &models.JobListResponse{
		Jobs:       jobs,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// UpdateStatus transitions a job to a new status, writing status,
// updated timestamps, and any relevant fields in a single row update
//. Uses a
// fresh connection per update (the shared *ent.Client's pool already
// gives every call its own connection) so a stalled connection on a
// long-running pipeline cannot block state progress. The transition
// itself is checked against pkg/statemachine before it is written.
func (s *JobService) UpdateStatus(httpCtx context.Context, id string, req models.UpdateJobStatusRequest) (*ent.Job, error) {
	if req.Status == "" {
		return nil, NewValidationError("status", "required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := s.client.Job.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job for status transition: %w", err)
	}
	// Re-reporting the same status (e.g. a repeated heartbeat update) is
	// idempotent, not a transition, so it bypasses the adjacency check.
	if req.Status != current.Status {
		if err := statemachine.Validate(statemachine.Kind(current.Kind), current.Status, req.Status); err != nil {
			return nil, fmt.Errorf("job status transition: %w", err)
		}
	}

	update := s.client.Job.UpdateOneID(id).SetStatus(req.Status)

	if req.CurrentPhase != nil {
		update = update.SetCurrentPhase(*req.CurrentPhase)
	}
	if req.ErrorMessage != nil {
		update = update.SetErrorMessage(*req.ErrorMessage)
	}
	if statemachine.IsTerminal(statemachine.Kind(current.Kind), req.Status) {
		update = update.SetCompletedAt(time.Now())
	}
	if initial, err := statemachine.InitialState(statemachine.Kind(current.Kind)); err == nil && req.Status != initial && current.StartedAt == nil {
		update = update.SetStartedAt(time.Now())
	}

	j, err := update.Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return j, nil
}

// UpdateProgress records a progress heartbeat for a running job.
func (s *JobService) UpdateProgress(ctx context.Context, id string, req models.UpdateJobProgressRequest) error {
	update := s.client.Job.UpdateOneID(id).
		SetProgressPercent(req.ProgressPercent).
		SetHeartbeatAt(time.Now())

	if req.ProgressSubstage != nil {
		update = update.SetProgressSubstage(*req.ProgressSubstage)
	}
	if req.CurrentModule != nil {
		update = update.SetCurrentModule(*req.CurrentModule)
	}

	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// SetUnifiedDocument persists the combiner's assembled output and the
// final list of failed modules on a module_extraction job.
func (s *JobService) SetUnifiedDocument(ctx context.Context, id string, doc map[string]any, failedModules []string, outputDir string) error {
	update := s.client.Job.UpdateOneID(id).
		SetUnifiedDocument(doc).
		SetOutputDir(outputDir)
	if len(failedModules) > 0 {
		update = update.SetFailedModules(failedModules)
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set unified document: %w", err)
	}
	return nil
}

// SetSections persists SOA detected/confirmed section payloads.
func (s *JobService) SetDetectedSections(ctx context.Context, id string, sections map[string]any) error {
	if err := s.client.Job.UpdateOneID(id).SetDetectedSections(sections).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set detected sections: %w", err)
	}
	return nil
}

// ConfirmSections records the caller-supplied confirmed sections
// payload that ends an `awaiting_section_confirmation` pause.
func (s *JobService) ConfirmSections(ctx context.Context, id string, sections map[string]any) error {
	if err := s.client.Job.UpdateOneID(id).SetConfirmedSections(sections).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("confirm sections: %w", err)
	}
	return nil
}

// SetDetectedPages persists SOA detected table page ranges awaiting
// confirmation.
func (s *JobService) SetDetectedPages(ctx context.Context, id string, pages []interface{}) error {
	if err := s.client.Job.UpdateOneID(id).SetDetectedPages(pages).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set detected pages: %w", err)
	}
	return nil
}

// ConfirmPages records the caller-supplied confirmed page ranges that
// end an `awaiting_page_confirmation` pause.
func (s *JobService) ConfirmPages(ctx context.Context, id string, pages []interface{}) error {
	if err := s.client.Job.UpdateOneID(id).SetConfirmedPages(pages).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("confirm pages: %w", err)
	}
	return nil
}

// IncrementAttempt bumps a job's resumption attempt counter.
func (s *JobService) IncrementAttempt(ctx context.Context, id string) error {
	j, err := s.client.Job.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get job for attempt increment: %w", err)
	}
	if err := s.client.Job.UpdateOneID(id).SetAttempt(j.Attempt + 1).Exec(ctx); err != nil {
		return fmt.Errorf("increment job attempt: %w", err)
	}
	return nil
}

// FindOrphanedJobs finds jobs in one of runningStatuses whose last
// heartbeat is older than timeout — a dead-without-terminal-state
// worker process. It only lists them; it does not change their status,
// and no background sweep in this repository calls it.
func (s *JobService) FindOrphanedJobs(ctx context.Context, runningStatuses []string, timeout time.Duration) ([]*ent.Job, error) {
	threshold := time.Now().Add(-timeout)

	jobs, err := s.client.Job.Query().
		Where(
			job.StatusIn(runningStatuses...),
			job.HeartbeatAtNotNil(),
			job.HeartbeatAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("find orphaned jobs: %w", err)
	}
	return jobs, nil
}
