// Package api provides the HTTP API for the protocol extraction
// control plane: protocol ingestion, job lifecycle, and event polling.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/database"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	"github.com/codeready-toolchain/protocolx/pkg/supervisor"
	"github.com/codeready-toolchain/protocolx/pkg/version"
	"github.com/gin-gonic/gin"
)

// Server is the control-plane HTTP API server.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	cfg        *config.Config
	dbClient   *database.Client
	protocols  *services.ProtocolService
	jobs       *services.JobService
	events     *services.EventService
	tables     *services.TableResultService
	plans      *services.MergePlanService
	supervisor *supervisor.Supervisor
}

// NewServer creates a new API server and registers its routes.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	protocols *services.ProtocolService,
	jobs *services.JobService,
	events *services.EventService,
	tables *services.TableResultService,
	plans *services.MergePlanService,
	sup *supervisor.Supervisor,
) *Server {
	s := &Server{
		engine:     gin.New(),
		cfg:        cfg,
		dbClient:   dbClient,
		protocols:  protocols,
		jobs:       jobs,
		events:     events,
		tables:     tables,
		plans:      plans,
		supervisor: sup,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/protocols", s.createProtocolHandler)
	v1.GET("/protocols", s.listProtocolsHandler)
	v1.GET("/protocols/:id", s.getProtocolHandler)

	v1.POST("/jobs", s.createJobHandler)
	v1.GET("/jobs", s.listJobsHandler)
	v1.GET("/jobs/:id", s.getJobHandler)
	v1.PATCH("/jobs/:id/status", s.updateJobStatusHandler)
	v1.PATCH("/jobs/:id/progress", s.updateJobProgressHandler)
	v1.POST("/jobs/:id/sections/confirm", s.confirmJobSectionsHandler)
	v1.POST("/jobs/:id/pages/confirm", s.confirmJobPagesHandler)
	v1.POST("/jobs/:id/merge-plan/confirm", s.confirmMergePlanHandler)

	v1.GET("/jobs/:id/events", s.listJobEventsHandler)
	v1.GET("/jobs/:id/tables", s.listTableResultsHandler)
	v1.GET("/jobs/:id/merge-plan", s.getMergePlanHandler)
}

// Engine exposes the underlying gin engine, for tests that want to
// drive requests with httptest without a bound listener.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Database *database.HealthStatus `json:"database"`
	Active   map[string]string      `json:"active_jobs,omitempty"`
	Modules  int                    `json:"modules"`
}

func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: dbHealth})
		return
	}

	resp := HealthResponse{
		Status:   "healthy",
		Version:  version.Full(),
		Database: dbHealth,
		Modules:  s.cfg.Stats().Modules,
	}
	if s.supervisor != nil {
		active := make(map[string]string)
		for jobID, status := range s.supervisor.ListActive() {
			active[jobID] = string(status)
		}
		resp.Active = active
	}
	c.JSON(http.StatusOK, resp)
}

// writeServiceError maps a services package error to an HTTP response.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
