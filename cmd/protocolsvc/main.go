// protocolsvc is the control-plane server: it exposes the HTTP API for
// protocol ingestion and job lifecycle, runs the retention cleanup
// loop, and spawns one pipelineworker child process per job.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codeready-toolchain/protocolx/pkg/api"
	"github.com/codeready-toolchain/protocolx/pkg/cleanup"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/database"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	"github.com/codeready-toolchain/protocolx/pkg/supervisor"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	workerBinary := flag.String("worker-binary",
		getEnv("WORKER_BINARY", "./pipelineworker"),
		"Path to the pipelineworker binary spawned per job")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	slog.Info("Connected to database")

	protocolService := services.NewProtocolService(dbClient.Client)
	jobService := services.NewJobService(dbClient.Client)
	eventService := services.NewEventService(dbClient.Client)
	tableService := services.NewTableResultService(dbClient.Client)
	planService := services.NewMergePlanService(dbClient.Client)

	sup := supervisor.New(*workerBinary)

	cleanupSvc := cleanup.NewService(cfg.Retention, protocolService, eventService)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(cfg, dbClient, protocolService, jobService, eventService, tableService, planService, sup)

	go func() {
		slog.Info("HTTP server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during HTTP shutdown", "error", err)
	}
}
