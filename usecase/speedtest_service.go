package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/domain/repositories"
)

// SpeedTestConfig bounds and defaults payload sizes
type SpeedTestConfig struct {
	MaxPayloadBytes     int64
	DefaultPayloadBytes int64
}

// SpeedTestService orchestrates measurement runs for client sessions
type SpeedTestService struct {
	reports repositories.ReportRepository
	config  SpeedTestConfig
	logger  *zap.Logger
}

// NewSpeedTestService creates a new speed test service
func NewSpeedTestService(reports repositories.ReportRepository, config SpeedTestConfig, logger *zap.Logger) *SpeedTestService {
	return &SpeedTestService{
		reports: reports,
		config:  config,
		logger:  logger,
	}
}

// Config returns the payload bounds used by the service
func (s *SpeedTestService) Config() SpeedTestConfig {
	return s.config
}

// StartRun begins a new run on the session. A size of zero or less selects
// the default payload size.
func (s *SpeedTestService) StartRun(session *entities.RunSession, sizeBytes int64) (*entities.TestRun, error) {
	if sizeBytes <= 0 {
		sizeBytes = s.config.DefaultPayloadBytes
	}
	if err := (entities.TransferRequest{SizeBytes: sizeBytes}).Validate(s.config.MaxPayloadBytes); err != nil {
		return nil, err
	}

	run, superseded := session.Begin(sizeBytes)
	if superseded != "" {
		s.logger.Info("Run superseded by a newer run",
			zap.String("sessionID", session.SessionID),
			zap.String("runID", superseded),
			zap.String("newRunID", run.ID))
	}

	s.logger.Info("Speed test run started",
		zap.String("sessionID", session.SessionID),
		zap.String("runID", run.ID),
		zap.Int64("payloadBytes", sizeBytes))

	return run, nil
}

// CompleteRun records both phases of runID. Results for superseded runs are
// dropped with entities.ErrStaleRun and never replace the session's report.
func (s *SpeedTestService) CompleteRun(ctx context.Context, session *entities.RunSession, runID string, download, upload entities.TransferResult) (*entities.RunReport, error) {
	download.Direction = entities.DirectionDownload
	upload.Direction = entities.DirectionUpload

	report, err := session.Complete(runID, download, upload, func(run *entities.TestRun) *entities.RunReport {
		return BuildReport(session.SessionID, run)
	})
	if err != nil {
		if errors.Is(err, entities.ErrStaleRun) {
			s.logger.Info("Discarding result of stale run",
				zap.String("sessionID", session.SessionID),
				zap.String("runID", runID))
		}
		return nil, err
	}

	view := NewReportView(report)
	s.logger.Info("Speed test run completed",
		zap.String("sessionID", session.SessionID),
		zap.String("runID", runID),
		zap.String("download", view.Download),
		zap.String("downloadTime", view.DownloadTime),
		zap.String("upload", view.Upload),
		zap.String("uploadTime", view.UploadTime),
		zap.String("totalTime", view.TotalTime))

	if err := s.reports.Save(ctx, report); err != nil {
		s.logger.Error("Failed to save run report",
			zap.String("runID", runID),
			zap.Error(err))
	}

	return report, nil
}

// FailRun abandons runID and returns the session to idle
func (s *SpeedTestService) FailRun(session *entities.RunSession, runID, reason string) error {
	if err := session.Fail(runID); err != nil {
		return err
	}
	s.logger.Warn("Speed test run failed",
		zap.String("sessionID", session.SessionID),
		zap.String("runID", runID),
		zap.String("reason", reason))
	return nil
}

// RecentReports lists the latest reports across all sessions
func (s *SpeedTestService) RecentReports(ctx context.Context, limit int) ([]*entities.RunReport, error) {
	reports, err := s.reports.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// SessionReports lists the latest reports of one session
func (s *SpeedTestService) SessionReports(ctx context.Context, sessionID string, limit int) ([]*entities.RunReport, error) {
	reports, err := s.reports.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session reports: %w", err)
	}
	return reports, nil
}
