// pipelineworker is the per-job, per-phase child process spawned by
// pkg/supervisor. Each invocation runs exactly one phase of one job to
// completion (or failure) and exits; it holds no state across runs.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/cache"
	"github.com/codeready-toolchain/protocolx/pkg/combiner"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/database"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
	"github.com/codeready-toolchain/protocolx/pkg/eligibility"
	"github.com/codeready-toolchain/protocolx/pkg/extractor"
	"github.com/codeready-toolchain/protocolx/pkg/interpret"
	"github.com/codeready-toolchain/protocolx/pkg/llm"
	"github.com/codeready-toolchain/protocolx/pkg/masking"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/orchestrator"
	"github.com/codeready-toolchain/protocolx/pkg/provenance"
	"github.com/codeready-toolchain/protocolx/pkg/quality"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	"github.com/codeready-toolchain/protocolx/pkg/soa"
	"github.com/codeready-toolchain/protocolx/pkg/supervisor"
	"github.com/joho/godotenv"
)

// PIPELINE_SUBPHASE selects which sub-stage of a multi-pause SOA or
// eligibility job this invocation runs; see pkg/soa.Runner and
// pkg/eligibility.Runner.
const (
	subphaseDetectPages           = "detect_pages"
	subphaseExtractTables         = "extract_tables"
	subphaseInterpretMergeGroups  = "interpret"
	subphaseDetectSections        = "detect_sections"
	subphaseExtractInterpretValid = "extract_interpret_validate"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := getEnv("CONFIG_DIR", "./deploy/config")
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil {
		log.Printf("Warning: could not load .env: %v", err)
	}

	phase := supervisor.Phase(os.Getenv("PIPELINE_PHASE"))
	jobID := os.Getenv("JOB_ID")
	protocolID := os.Getenv("PROTOCOL_ID")
	if phase == "" || jobID == "" || protocolID == "" {
		log.Fatal("PIPELINE_PHASE, JOB_ID and PROTOCOL_ID are required")
	}

	logger := slog.With("job_id", jobID, "phase", phase)
	ctx := context.Background()

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		logger.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	jobService := services.NewJobService(dbClient.Client)
	protocolService := services.NewProtocolService(dbClient.Client)
	resultService := services.NewModuleResultService(dbClient.Client)
	eventService := services.NewEventService(dbClient.Client)
	tableService := services.NewTableResultService(dbClient.Client)
	planService := services.NewMergePlanService(dbClient.Client)
	groupService := services.NewMergeGroupResultService(dbClient.Client)

	llmClient, err := llm.NewClient(cfg.LLMProviderRegistry)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	docstoreClient := docstore.New(llmClient, dbClient.Client)
	pipeline := interpret.New(llmClient, cfg.Interpret)

	subphase := os.Getenv("PIPELINE_SUBPHASE")

	var runErr error
	switch phase {
	case supervisor.PhaseModuleExtraction:
		runErr = runModuleExtraction(ctx, cfg, dbClient.Client, jobService, protocolService, resultService, eventService, llmClient, jobID)
	case supervisor.PhaseSOA:
		soaRunner := soa.New(docstoreClient, cfg.Interpret, jobService, protocolService, tableService, planService, groupService, eventService, pipeline)
		runErr = runSOA(ctx, soaRunner, subphase, jobID)
	case supervisor.PhaseEligibility:
		eligRunner := eligibility.New(docstoreClient, cfg.Interpret, jobService, protocolService, eventService, pipeline)
		runErr = runEligibility(ctx, eligRunner, subphase, jobID)
	default:
		runErr = fmt.Errorf("unknown pipeline phase %q", phase)
	}

	if runErr != nil {
		logger.Error("pipeline worker failed", "error", runErr)
		if _, failErr := jobService.UpdateStatus(ctx, jobID, models.UpdateJobStatusRequest{
			Status:       "failed",
			ErrorMessage: strPtr(runErr.Error()),
		}); failErr != nil {
			logger.Error("failed to record job failure", "error", failErr)
		}
		os.Exit(1)
	}
	logger.Info("pipeline worker completed")
}

// runModuleExtraction wires the two-phase extraction orchestrator and
// drives jobID's module run to completion, resuming from any
// previously-checkpointed modules.
func runModuleExtraction(
	ctx context.Context,
	cfg *config.Config,
	entClient *ent.Client,
	jobService *services.JobService,
	protocolService *services.ProtocolService,
	resultService *services.ModuleResultService,
	eventService *services.EventService,
	llmClient *llm.Client,
	jobID string,
) error {
	schemaPaths := make(map[string]string)
	for _, moduleID := range cfg.ModuleRegistry.Ordered() {
		modCfg, err := cfg.ModuleRegistry.Get(moduleID)
		if err != nil {
			return fmt.Errorf("load module %s: %w", moduleID, err)
		}
		schemaPaths[moduleID] = filepath.Join(cfg.ConfigDir(), modCfg.SchemaPath)
	}

	schemas, err := quality.NewSchemaRegistry(schemaPaths)
	if err != nil {
		return fmt.Errorf("compile module schemas: %w", err)
	}

	// No codelist source is wired up yet; the terminology validator
	// degrades to a no-op until one is configured.
	codelists := map[string]provenance.Codelist{}
	checker := quality.NewChecker(cfg.Defaults.Quality, cfg.Defaults.QualityWeights, schemas, codelists)

	cacheDir := getEnv("EXTRACTION_CACHE_DIR", filepath.Join(os.TempDir(), "protocolx-cache"))
	extractionCache := cache.New(entClient, cacheDir)

	docstoreClient := docstore.New(llmClient, entClient)
	ext := extractor.New(docstoreClient, checker, extractionCache, cfg.ModuleRegistry, cfg.Defaults.Retry)
	comb := combiner.New(cfg.Interpret)
	masker := masking.NewService(masking.Config{Enabled: cfg.System.MaskingEnabled})

	runner := orchestrator.New(jobService, protocolService, resultService, eventService, ext, docstoreClient, cfg.ModuleRegistry, cfg.Defaults.QualityWeights, comb, masker)

	job, err := jobService.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	resume := job.Attempt > 0

	return runner.Run(ctx, jobID, resume)
}

// runSOA dispatches one SOA sub-phase: detect table pages, extract
// confirmed tables and analyze merge candidates, or interpret
// confirmed merge groups. Each sub-phase is one pipelineworker
// invocation, spawned by the API's confirm handlers or by
// createJobHandler for the first one.
func runSOA(ctx context.Context, r *soa.Runner, subphase, jobID string) error {
	switch subphase {
	case subphaseDetectPages:
		return r.RunDetectPages(ctx, jobID)
	case subphaseExtractTables:
		return r.RunExtractTables(ctx, jobID)
	case subphaseInterpretMergeGroups:
		return r.RunInterpret(ctx, jobID)
	default:
		return fmt.Errorf("unknown SOA sub-phase %q", subphase)
	}
}

// runEligibility dispatches one eligibility sub-phase: detect
// inclusion/exclusion sections, or extract+interpret+validate the
// confirmed sections through to completion.
func runEligibility(ctx context.Context, r *eligibility.Runner, subphase, jobID string) error {
	switch subphase {
	case subphaseDetectSections:
		return r.RunDetectSections(ctx, jobID)
	case subphaseExtractInterpretValid:
		return r.RunExtractInterpretValidate(ctx, jobID)
	default:
		return fmt.Errorf("unknown eligibility sub-phase %q", subphase)
	}
}

func strPtr(s string) *string { return &s }
