package services

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/protocolx/pkg/models"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePlanService_CreateConfirmMarkExecuted(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	plans := NewMergePlanService(client.Client)
	ctx := context.Background()

	jobID := newTestSOAJob(t, protocolService, jobService)

	plan, err := plans.Create(ctx, models.CreateMergePlanRequest{
		JobID: jobID,
		ProposedGroups: []models.MergeGroup{
			{GroupLabel: "MERGE-1", TableResultIDs: []string{"t1", "t2"}, MergeType: "exact_header_match", DecisionLevel: 1, Confidence: 0.98},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "proposed", plan.Status)

	confirmed, err := plans.Confirm(ctx, plan.ID, models.ConfirmMergePlanRequest{
		ConfirmedGroups: []models.MergeGroup{
			{GroupLabel: "MERGE-1", TableResultIDs: []string{"t1", "t2"}, MergeType: "exact_header_match", DecisionLevel: 1, Confidence: 0.98},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	err = plans.MarkExecuted(ctx, plan.ID)
	require.NoError(t, err)

	executed, err := plans.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "executed", executed.Status)
}

func TestMergePlanService_ForJobReturnsMostRecent(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	plans := NewMergePlanService(client.Client)
	ctx := context.Background()

	jobID := newTestSOAJob(t, protocolService, jobService)

	first, err := plans.Create(ctx, models.CreateMergePlanRequest{JobID: jobID})
	require.NoError(t, err)

	second, err := plans.Create(ctx, models.CreateMergePlanRequest{JobID: jobID})
	require.NoError(t, err)

	latest, err := plans.ForJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
}

func TestMergeGroupResultService_CreateAndListForPlan(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := NewProtocolService(client.Client)
	jobService := NewJobService(client.Client)
	plans := NewMergePlanService(client.Client)
	groups := NewMergeGroupResultService(client.Client)
	ctx := context.Background()

	jobID := newTestSOAJob(t, protocolService, jobService)
	plan, err := plans.Create(ctx, models.CreateMergePlanRequest{JobID: jobID})
	require.NoError(t, err)

	_, err = groups.Create(ctx, plan.ID, "MERGE-1", [][]string{{"a", "b"}}, []string{"h1", "h2"},
		map[string]interface{}{"source_tables": []string{"t1"}}, []interface{}{map[string]interface{}{"stage": 1}})
	require.NoError(t, err)

	list, err := groups.ListForPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "MERGE-1", list[0].GroupLabel)
}
