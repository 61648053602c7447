package orchestrator

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModuleRegistry() *config.ModuleRegistry {
	order := []string{"study_identification", "eligibility_criteria", "visit_schedule"}
	modules := map[string]*config.ModuleConfig{
		"study_identification": {InstanceType: "StudyIdentification", Enabled: true},
		"eligibility_criteria": {InstanceType: "EligibilityCriteria", Enabled: true},
		"visit_schedule":       {InstanceType: "VisitSchedule", Enabled: false},
	}
	return config.NewModuleRegistry(order, modules)
}

// TestRunner_PendingModules_FreshRun covers the fresh-run branch, where
// every enabled module is still pending, without touching the LLM.
func TestRunner_PendingModules_FreshRun(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := services.NewProtocolService(client.Client)
	jobService := services.NewJobService(client.Client)
	resultService := services.NewModuleResultService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("fresh run protocol content"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	r := &Runner{results: resultService, modules: testModuleRegistry()}

	pending, err := r.pendingModules(ctx, j.ID, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"study_identification", "eligibility_criteria"}, pending)
}

// TestRunner_PendingModules_Resume covers the "only modules not yet
// completed when resume=true" branch.
func TestRunner_PendingModules_Resume(t *testing.T) {
	client := testdb.NewTestClient(t)
	protocolService := services.NewProtocolService(client.Client)
	jobService := services.NewJobService(client.Client)
	resultService := services.NewModuleResultService(client.Client)
	ctx := context.Background()

	p, err := protocolService.CreateProtocol(ctx, models.CreateProtocolRequest{
		Filename: "protocol.pdf",
		Content:  []byte("resume protocol content"),
	})
	require.NoError(t, err)
	j, err := jobService.CreateJob(ctx, models.CreateJobRequest{ProtocolID: p.ID, Kind: "module_extraction"})
	require.NoError(t, err)

	mr, err := resultService.Upsert(ctx, models.CreateModuleResultRequest{
		JobID:    j.ID,
		ModuleID: "study_identification",
		Data:     map[string]any{"title": "done already"},
	})
	require.NoError(t, err)
	_, err = resultService.RecordScores(ctx, mr.ID, models.UpdateModuleResultScoresRequest{}, true)
	require.NoError(t, err)

	r := &Runner{results: resultService, modules: testModuleRegistry()}

	pending, err := r.pendingModules(ctx, j.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"eligibility_criteria"}, pending)
}
