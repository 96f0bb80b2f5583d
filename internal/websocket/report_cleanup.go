package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/repositories"
)

// ReportCleanupService prunes stored run reports past their retention
type ReportCleanupService struct {
	reports   repositories.ReportRepository
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewReportCleanupService creates a new report cleanup service
func NewReportCleanupService(reports repositories.ReportRepository, retention, interval time.Duration, logger *zap.Logger) *ReportCleanupService {
	return &ReportCleanupService{
		reports:   reports,
		retention: retention,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *ReportCleanupService) Start() {
	if s.retention <= 0 || s.interval <= 0 {
		s.logger.Info("Report cleanup disabled")
		return
	}
	go s.cleanupLoop()
	s.logger.Info("Report cleanup service started",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *ReportCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("Report cleanup service stopped")
	})
}

func (s *ReportCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			s.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce deletes reports older than the retention window
func (s *ReportCleanupService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.reports.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to delete expired reports", zap.Error(err))
		return 0, err
	}

	s.logger.Info("Report cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
	return deleted, nil
}
