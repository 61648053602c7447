// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/services"
)

// Service periodically enforces retention policies:
//   - Soft-deletes old protocols (created before the retention
//     cutoff; job completion times are not consulted)
//   - Removes orphaned Event rows past their TTL
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config          *config.RetentionConfig
	protocolService *services.ProtocolService
	eventService    *services.EventService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	protocolService *services.ProtocolService,
	eventService *services.EventService,
) *Service {
	return &Service{
		config:          cfg,
		protocolService: protocolService,
		eventService:    eventService,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention_days", s.config.JobRetentionDays,
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.softDeleteOldProtocols(ctx)
	s.cleanupOrphanedEvents(ctx)
}

func (s *Service) softDeleteOldProtocols(_ context.Context) {
	count, err := s.protocolService.SoftDeleteOldProtocols(context.Background(), s.config.JobRetentionDays)
	if err != nil {
		slog.Error("Retention: soft-delete protocols failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: soft-deleted old protocols", "count", count)
	}
}

func (s *Service) cleanupOrphanedEvents(_ context.Context) {
	count, err := s.eventService.CleanupOrphanedEvents(context.Background(), s.config.EventTTL)
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: cleaned up orphaned events", "count", count)
	}
}
