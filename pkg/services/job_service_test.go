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

func newTestProtocol(t *testing.T, protocolService *ProtocolService) string {
	t.Helper()
	p, err := protocolService.CreateProtocol(context.Background(), models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("protocol content for " + t.Name()),
	})
	require.NoError(t, err)
	return p.ID
}

func TestJobService_CreateJob(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	protocolID := newTestProtocol(t, protocolService)

	t.Run("creates a queued job", func(t *testing.T) {
		j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
		require.NoError(t, err)
		assert.Equal(t, "queued", j.Status)
		assert.Equal(t, protocolID, j.ProtocolID)
	})

	t.Run("rejects missing protocol_id", func(t *testing.T) {
		_, err := jobService.CreateJob(ctx, models.CreateJobRequest{Kind: "module_extraction"})
		assert.True(t, IsValidationError(err))
	})

	t.Run("starts a soa job at detecting_pages", func(t *testing.T) {
		j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "soa"})
		require.NoError(t, err)
		assert.Equal(t, "detecting_pages", j.Status)
	})

	t.Run("starts an eligibility job at detecting_sections", func(t *testing.T) {
		j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "eligibility"})
		require.NoError(t, err)
		assert.Equal(t, "detecting_sections", j.Status)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		_, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "not_a_kind"})
		assert.True(t, IsValidationError(err))
	})
}

func TestJobService_UpdateStatus(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	protocolID := newTestProtocol(t, protocolService)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
	require.NoError(t, err)

	t.Run("sets started_at only on the first non-queued transition", func(t *testing.T) {
		updated, err := jobService.UpdateStatus(ctx, j.ID, models.UpdateJobStatusRequest{Status: "running"})
		require.NoError(t, err)
		require.NotNil(t, updated.StartedAt)
		firstStartedAt := *updated.StartedAt

		time.Sleep(5 * time.Millisecond)
		updated, err = jobService.UpdateStatus(ctx, j.ID, models.UpdateJobStatusRequest{Status: "running"})
		require.NoError(t, err)
		assert.Equal(t, firstStartedAt, *updated.StartedAt)
	})

	t.Run("sets completed_at on terminal status", func(t *testing.T) {
		updated, err := jobService.UpdateStatus(ctx, j.ID, models.UpdateJobStatusRequest{Status: "completed"})
		require.NoError(t, err)
		assert.NotNil(t, updated.CompletedAt)
	})

	t.Run("rejects a transition not in the job kind's table", func(t *testing.T) {
		other, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
		require.NoError(t, err)

		_, err = jobService.UpdateStatus(ctx, other.ID, models.UpdateJobStatusRequest{Status: "completed"})
		assert.Error(t, err)
	})
}

func TestJobService_FindOrphanedJobs(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	ctx := context.Background()

	protocolID := newTestProtocol(t, protocolService)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
	require.NoError(t, err)

	_, err = jobService.UpdateStatus(ctx, j.ID, models.UpdateJobStatusRequest{Status: "running"})
	require.NoError(t, err)

	staleHeartbeat := time.Now().Add(-10 * time.Minute)
	err = client.Job.UpdateOneID(j.ID).SetHeartbeatAt(staleHeartbeat).Exec(ctx)
	require.NoError(t, err)

	t.Run("finds jobs with a stale heartbeat", func(t *testing.T) {
		orphans, err := jobService.FindOrphanedJobs(ctx, []string{"running"}, 5*time.Minute)
		require.NoError(t, err)

		var found bool
		for _, o := range orphans {
			if o.ID == j.ID {
				found = true
			}
		}
		assert.True(t, found)
	})
}
