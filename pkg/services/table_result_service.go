package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/tableresult"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/google/uuid"
)

// TableResultService persists one detected Schedule-of-Activities table
// per (job, table) pair, from initial page-range detection through
// extraction and eventual merge-group assignment.
type TableResultService struct {
	client *ent.Client
}

// NewTableResultService creates a new TableResultService.
func NewTableResultService(client *ent.Client) *TableResultService {
	return &TableResultService{client: client}
}

// Create records one detected table, typically right after a job's
// page-confirmation step supplies the confirmed page ranges.
func (s *TableResultService) Create(ctx context.Context, req models.CreateTableResultRequest) (*ent.TableResult, error) {
	if req.JobID == "" {
		return nil, NewValidationError("job_id", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	create := s.client.TableResult.Create().
		SetID(uuid.NewString()).
		SetJobID(req.JobID).
		SetPageStart(req.PageStart).
		SetPageEnd(req.PageEnd).
		SetRawRows(req.RawRows).
		SetColumnHeaders(req.ColumnHeaders)

	if req.TableLabel != "" {
		create = create.SetTableLabel(req.TableLabel)
	}
	if req.Category != "" {
		create = create.SetCategory(req.Category)
	}
	if req.OutputPayload != nil {
		create = create.SetOutputPayload(req.OutputPayload)
	}
	if req.VisitsCount > 0 {
		create = create.SetVisitsCount(req.VisitsCount)
	}
	if req.ActivitiesCount > 0 {
		create = create.SetActivitiesCount(req.ActivitiesCount)
	}
	if req.InstancesCount > 0 {
		create = create.SetInstancesCount(req.InstancesCount)
	}
	if req.FootnotesCount > 0 {
		create = create.SetFootnotesCount(req.FootnotesCount)
	}
	if req.Confidence != nil {
		create = create.SetConfidence(*req.Confidence)
	}

	tr, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create table result: %w", err)
	}
	return tr, nil
}

// SetExtracted records an extracted table's output payload and counts,
// and marks it assigned so the merge analyzer can pick it up.
func (s *TableResultService) SetExtracted(ctx context.Context, id string, payload map[string]interface{}, visits, activities, instances, footnotes int) error {
	err := s.client.TableResult.UpdateOneID(id).
		SetOutputPayload(payload).
		SetVisitsCount(visits).
		SetActivitiesCount(activities).
		SetInstancesCount(instances).
		SetFootnotesCount(footnotes).
		SetStatus("assigned").
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set table result extracted: %w", err)
	}
	return nil
}

// AssignMergeGroup records which MergeGroupResult a table's rows were
// folded into and marks it merged.
func (s *TableResultService) AssignMergeGroup(ctx context.Context, id, mergeGroupResultID string) error {
	err := s.client.TableResult.UpdateOneID(id).
		SetMergeGroupResultID(mergeGroupResultID).
		SetStatus("merged").
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("assign table result merge group: %w", err)
	}
	return nil
}

// Get retrieves a table result by id.
func (s *TableResultService) Get(ctx context.Context, id string) (*ent.TableResult, error) {
	tr, err := s.client.TableResult.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get table result: %w", err)
	}
	return tr, nil
}

// ListForJob returns every table result detected for a job, ordered by
// page start so the list reads in document order.
func (s *TableResultService) ListForJob(ctx context.Context, jobID string) ([]*ent.TableResult, error) {
	results, err := s.client.TableResult.Query().
		Where(tableresult.JobIDEQ(jobID)).
		Order(ent.Asc(tableresult.FieldPageStart)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list table results for job: %w", err)
	}
	return results, nil
}
