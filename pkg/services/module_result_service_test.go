package services

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/protocolx/pkg/models"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleResultService_UpsertAndRecordScores(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	resultService := NewModuleResultService(client.Client)
	ctx := context.Background()

	protocolID := newTestProtocol(t, protocolService)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
	require.NoError(t, err)

	t.Run("creates a pending result on first upsert", func(t *testing.T) {
		mr, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{
			JobID:    j.ID,
			ModuleID: "study_identification",
			Data:     map[string]any{"title": "A Study"},
		})
		require.NoError(t, err)
		assert.Equal(t, "pending", mr.Status)
	})

	t.Run("overwrites the same (job, module) row rather than duplicating", func(t *testing.T) {
		first, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{
			JobID:    j.ID,
			ModuleID: "eligibility_criteria",
			Data:     map[string]any{"inclusion": []string{"adults"}},
		})
		require.NoError(t, err)

		second, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{
			JobID:    j.ID,
			ModuleID: "eligibility_criteria",
			Data:     map[string]any{"inclusion": []string{"adults", "consenting"}},
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("records scores and marks succeeded", func(t *testing.T) {
		mr, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{
			JobID:    j.ID,
			ModuleID: "visit_schedule",
			Data:     map[string]any{"visits": []string{"screening"}},
		})
		require.NoError(t, err)

		composite := 0.97
		updated, err := resultService.RecordScores(ctx, mr.ID, models.UpdateModuleResultScoresRequest{
			CompositeScore: &composite,
			Feedback:       []string{"looks good"},
		}, true)
		require.NoError(t, err)
		assert.Equal(t, "succeeded", updated.Status)
		require.NotNil(t, updated.CompositeScore)
		assert.Equal(t, composite, *updated.CompositeScore)
	})
}

func TestModuleResultService_CompletedModuleIDs(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	resultService := NewModuleResultService(client.Client)
	ctx := context.Background()

	protocolID := newTestProtocol(t, protocolService)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: protocolID, Kind: "module_extraction"})
	require.NoError(t, err)

	succeeded, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{JobID: j.ID, ModuleID: "arm_design", Data: map[string]any{}})
	require.NoError(t, err)
	_, err = resultService.RecordScores(ctx, succeeded.ID, models.UpdateModuleResultScoresRequest{}, true)
	require.NoError(t, err)

	_, err = resultService.Upsert(ctx, models.CreateModuleResultRequest{JobID: j.ID, ModuleID: "objectives", Data: map[string]any{}})
	require.NoError(t, err)

	t.Run("only includes modules marked succeeded", func(t *testing.T) {
		done, err := resultService.CompletedModuleIDs(ctx, j.ID)
		require.NoError(t, err)
		assert.True(t, done["arm_design"])
		assert.False(t, done["objectives"])
	})
}
