package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServices(t *testing.T) (*ent.Client, *services.ProtocolService, *services.JobService, *services.EventService) {
	t.Helper()
	client := testdb.NewTestClient(t)
	return client.Client,
		services.NewProtocolService(client.Client),
		services.NewJobService(client.Client),
		services.NewEventService(client.Client)
}

func TestService_SoftDeletesOldProtocols(t *testing.T) {
	client, protocolService, jobService, eventService := setupServices(t)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "old.pdf",
		Content:  []byte("old protocol content"),
	})
	require.NoError(t, err)
	_, err = jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		JobRetentionDays: 365,
		EventTTL:         1 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
	svc := NewService(cfg, protocolService, eventService)

	t.Run("preserves a recently-ingested protocol", func(t *testing.T) {
		svc.runAll(ctx)

		got, err := protocolService.GetProtocol(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DeletedAt)
	})

	t.Run("soft deletes once the protocol ages past the retention window", func(t *testing.T) {
		err := client.Protocol.UpdateOneID(p.ID).
			SetCreatedAt(time.Now().Add(-400 * 24 * time.Hour)).
			Exec(ctx)
		require.NoError(t, err)

		svc.runAll(ctx)

		got, err := protocolService.GetProtocol(ctx, p.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.DeletedAt)
	})
}

func TestService_CleansUpOrphanedEvents(t *testing.T) {
	client, protocolService, jobService, eventService := setupServices(t)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("protocol content for event cleanup"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	_, err = client.Event.Create().
		SetID("00000000-0000-0000-0000-000000000001").
		SetJobID(j.ID).
		SetSeq(1).
		SetEventType("job_started").
		SetCreatedAt(time.Now().Add(-2 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	_, err = eventService.AppendEvent(ctx, models.CreateEventRequest{JobID: j.ID, EventType: "module_started"})
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		JobRetentionDays: 365,
		EventTTL:         1 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
	svc := NewService(cfg, protocolService, eventService)
	svc.runAll(ctx)

	resp, err := eventService.EventsSince(ctx, j.ID, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Events, 1, "old event should be deleted, recent event preserved")
}

func TestService_StartStop(t *testing.T) {
	_, protocolService, _, eventService := setupServices(t)

	cfg := &config.RetentionConfig{
		JobRetentionDays: 365,
		EventTTL:         1 * time.Hour,
		CleanupInterval:  50 * time.Millisecond,
	}
	svc := NewService(cfg, protocolService, eventService)

	svc.Start(context.Background())
	svc.Stop()
}
