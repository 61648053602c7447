package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/event"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/google/uuid"
)

// EventService appends to and reads a job's totally-ordered progress
// event stream. Sequence numbers are assigned here, not by the caller,
// so concurrent appends to the same job never collide.
type EventService struct {
	client *ent.Client
}

// NewEventService creates a new EventService.
func NewEventService(client *ent.Client) *EventService {
	return &EventService{client: client}
}

// AppendEvent appends an event to req.JobID's stream, assigning the
// next sequence number.
func (s *EventService) AppendEvent(httpCtx context.Context, req models.CreateEventRequest) (*ent.Event, error) {
	if req.JobID == "" {
		return nil, NewValidationError("job_id", "required")
	}
	if req.EventType == "" {
		return nil, NewValidationError("event_type", "required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback()

	last, err := tx.Event.Query().
		Where(event.JobIDEQ(req.JobID)).
		Order(ent.Desc(event.FieldSeq)).
		First(ctx)
	var nextSeq int64 = 1
	if err == nil {
		nextSeq = last.Seq + 1
	} else if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query last event seq: %w", err)
	}

	builder := tx.Event.Create().
		SetID(uuid.NewString()).
		SetJobID(req.JobID).
		SetSeq(nextSeq).
		SetEventType(event.EventType(req.EventType))
	if req.ModuleID != nil {
		builder = builder.SetModuleID(*req.ModuleID)
	}
	if req.Payload != nil {
		builder = builder.SetPayload(req.Payload)
	}

	evt, err := builder.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event append: %w", err)
	}
	return evt, nil
}

// EventsSince returns jobID's events with seq greater than sinceSeq,
// in order, for a resumable progress feed.
func (s *EventService) EventsSince(ctx context.Context, jobID string, sinceSeq int64) (*models.EventsResponse, error) {
	events, err := s.client.Event.Query().
		Where(event.JobIDEQ(jobID), event.SeqGT(sinceSeq)).
		Order(ent.Asc(event.FieldSeq)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query events since seq: %w", err)
	}

	lastSeq := sinceSeq
	if len(events) > 0 {
		lastSeq = events[len(events)-1].Seq
	}

	return &models.EventsResponse{Events: events, LastSeq: lastSeq}, nil
}

// CleanupJobEvents removes every event recorded for a job.
func (s *EventService) CleanupJobEvents(ctx context.Context, jobID string) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := s.client.Event.Delete().
		Where(event.JobIDEQ(jobID)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("cleanup job events: %w", err)
	}
	return count, nil
}

// CleanupOrphanedEvents removes events older than ttl, a safety net for
// events whose job was hard-deleted without going through
// CleanupJobEvents first.
func (s *EventService) CleanupOrphanedEvents(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.Event.Delete().
		Where(event.CreatedAtLT(cutoff)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("cleanup orphaned events: %w", err)
	}
	return count, nil
}
