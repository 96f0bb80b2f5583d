package speedclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/usecase"
)

// Runner performs complete runs: download first, then upload, then report
type Runner struct {
	client  *Client
	service *usecase.SpeedTestService
	session *entities.RunSession
	logger  *zap.Logger
}

// NewRunner creates a runner whose runs belong to sessionID
func NewRunner(client *Client, service *usecase.SpeedTestService, sessionID string, logger *zap.Logger) *Runner {
	return &Runner{
		client:  client,
		service: service,
		session: entities.NewRunSession(sessionID),
		logger:  logger,
	}
}

// Session returns the run session driven by this runner
func (r *Runner) Session() *entities.RunSession {
	return r.session
}

// Run measures one run of sizeBytes. A size of zero or less uses the
// service default.
func (r *Runner) Run(ctx context.Context, sizeBytes int64) (*entities.RunReport, error) {
	run, err := r.service.StartRun(r.session, sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	download, err := r.client.MeasureDownload(ctx, run.PayloadSizeBytes)
	if err != nil {
		r.fail(run.ID, err)
		return nil, fmt.Errorf("download phase failed: %w", err)
	}

	upload, err := r.client.MeasureUpload(ctx, run.PayloadSizeBytes)
	if err != nil {
		r.fail(run.ID, err)
		return nil, fmt.Errorf("upload phase failed: %w", err)
	}

	report, err := r.service.CompleteRun(ctx, r.session, run.ID, download, upload)
	if err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}
	return report, nil
}

func (r *Runner) fail(runID string, cause error) {
	if err := r.service.FailRun(r.session, runID, cause.Error()); err != nil {
		r.logger.Debug("Run already superseded", zap.String("runID", runID), zap.Error(err))
	}
}
