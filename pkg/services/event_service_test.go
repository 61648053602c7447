package services

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/protocolx/pkg/models"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_AppendEvent(t *testing.T) {
	client := testdb.NewTestClient(t)
	eventService := NewEventService(client.Client)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("test content append"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	t.Run("appends event with seq 1 for a new job", func(t *testing.T) {
		evt, err := eventService.AppendEvent(ctx, models.CreateEventRequest{
			JobID:     j.ID,
			EventType: "job_started",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), evt.Seq)
		assert.Equal(t, j.ID, evt.JobID)
	})

	t.Run("assigns monotonically increasing seq", func(t *testing.T) {
		evt, err := eventService.AppendEvent(ctx, models.CreateEventRequest{
			JobID:     j.ID,
			EventType: "module_started",
			Payload:   map[string]any{"module_id": "eligibility"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), evt.Seq)
	})

	t.Run("rejects missing job_id", func(t *testing.T) {
		_, err := eventService.AppendEvent(ctx, models.CreateEventRequest{EventType: "job_started"})
		assert.True(t, IsValidationError(err))
	})
}

func TestEventService_EventsSince(t *testing.T) {
	client := testdb.NewTestClient(t)
	eventService := NewEventService(client.Client)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("test content since"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	_, err = eventService.AppendEvent(ctx, models.CreateEventRequest{JobID: j.ID, EventType: "job_started"})
	require.NoError(t, err)
	_, err = eventService.AppendEvent(ctx, models.CreateEventRequest{JobID: j.ID, EventType: "module_started"})
	require.NoError(t, err)
	_, err = eventService.AppendEvent(ctx, models.CreateEventRequest{JobID: j.ID, EventType: "module_completed"})
	require.NoError(t, err)

	t.Run("returns events after cursor", func(t *testing.T) {
		resp, err := eventService.EventsSince(ctx, j.ID, 1)
		require.NoError(t, err)
		assert.Len(t, resp.Events, 2)
		assert.Equal(t, int64(3), resp.LastSeq)
	})

	t.Run("returns all events from cursor 0", func(t *testing.T) {
		resp, err := eventService.EventsSince(ctx, j.ID, 0)
		require.NoError(t, err)
		assert.Len(t, resp.Events, 3)
	})
}

func TestEventService_CleanupJobEvents(t *testing.T) {
	client := testdb.NewTestClient(t)
	eventService := NewEventService(client.Client)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("test content cleanup"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := eventService.AppendEvent(ctx, models.CreateEventRequest{JobID: j.ID, EventType: "stage_progress"})
		require.NoError(t, err)
	}

	t.Run("removes every event for a job", func(t *testing.T) {
		count, err := eventService.CleanupJobEvents(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		resp, err := eventService.EventsSince(ctx, j.ID, 0)
		require.NoError(t, err)
		assert.Len(t, resp.Events, 0)
	})
}

func TestEventService_CleanupOrphanedEvents(t *testing.T) {
	client := testdb.NewTestClient(t)
	eventService := NewEventService(client.Client)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("test content orphan"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	oldTime := time.Now().Add(-8 * 24 * time.Hour)
	_, err = client.Event.Create().
		SetID("00000000-0000-0000-0000-000000000001").
		SetJobID(j.ID).
		SetSeq(1).
		SetEventType("job_started").
		SetCreatedAt(oldTime).
		Save(ctx)
	require.NoError(t, err)

	t.Run("cleans up events past the retention window", func(t *testing.T) {
		count, err := eventService.CleanupOrphanedEvents(ctx, 7*24*time.Hour)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)
	})
}
