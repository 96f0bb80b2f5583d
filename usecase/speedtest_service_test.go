package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/echo/server/adapters/memory"
	"github.com/satriahrh/echo/server/domain/entities"
)

type failingReportRepository struct {
	*memory.ReportRepository
}

func (f *failingReportRepository) Save(ctx context.Context, report *entities.RunReport) error {
	return errors.New("storage unavailable")
}

func newTestService(t *testing.T) (*SpeedTestService, *memory.ReportRepository) {
	t.Helper()
	repo := memory.NewReportRepository(10)
	service := NewSpeedTestService(repo, SpeedTestConfig{
		MaxPayloadBytes:     100 << 20,
		DefaultPayloadBytes: 10 << 20,
	}, zaptest.NewLogger(t))
	return service, repo
}

func TestSpeedTestService_StartRun(t *testing.T) {
	service, _ := newTestService(t)
	session := entities.NewRunSession("session-1")

	run, err := service.StartRun(session, 0)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if run.PayloadSizeBytes != 10<<20 {
		t.Errorf("Expected default payload, got %d", run.PayloadSizeBytes)
	}

	if _, err := service.StartRun(session, 101<<20); !errors.Is(err, entities.ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
	if session.CurrentRunID() != run.ID {
		t.Error("A rejected start must not replace the current run")
	}
}

func TestSpeedTestService_CompleteRun(t *testing.T) {
	service, repo := newTestService(t)
	session := entities.NewRunSession("session-1")
	ctx := context.Background()

	run, _ := service.StartRun(session, 1_000_000)
	result := entities.TransferResult{BytesTransferred: 1_000_000, Elapsed: time.Second}

	report, err := service.CompleteRun(ctx, session, run.ID, result, result)
	if err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}
	if report.DownloadMbps == nil || *report.DownloadMbps != 8 {
		t.Errorf("Expected 8 Mbps, got %v", report.DownloadMbps)
	}

	saved, _ := repo.ListBySession(ctx, "session-1", 0)
	if len(saved) != 1 {
		t.Fatalf("Expected 1 saved report, got %d", len(saved))
	}
	if saved[0].RunID != run.ID {
		t.Errorf("Expected saved report for %s, got %s", run.ID, saved[0].RunID)
	}
}

func TestSpeedTestService_LateResultKeepsNewerRun(t *testing.T) {
	service, repo := newTestService(t)
	session := entities.NewRunSession("session-1")
	ctx := context.Background()

	runA, _ := service.StartRun(session, 10<<20)
	runB, _ := service.StartRun(session, 20<<20)

	resultB := entities.TransferResult{BytesTransferred: 20 << 20, Elapsed: 2 * time.Second}
	if _, err := service.CompleteRun(ctx, session, runB.ID, resultB, resultB); err != nil {
		t.Fatalf("CompleteRun(B) error = %v", err)
	}

	resultA := entities.TransferResult{BytesTransferred: 10 << 20, Elapsed: time.Second}
	if _, err := service.CompleteRun(ctx, session, runA.ID, resultA, resultA); !errors.Is(err, entities.ErrStaleRun) {
		t.Fatalf("Expected ErrStaleRun, got %v", err)
	}

	if session.LastReport().RunID != runB.ID {
		t.Errorf("Expected displayed report for B, got %s", session.LastReport().RunID)
	}

	saved, _ := repo.ListRecent(ctx, 0)
	if len(saved) != 1 {
		t.Errorf("Expected only B to be stored, got %d reports", len(saved))
	}
}

func TestSpeedTestService_SaveFailureIsContained(t *testing.T) {
	repo := &failingReportRepository{memory.NewReportRepository(10)}
	service := NewSpeedTestService(repo, SpeedTestConfig{MaxPayloadBytes: 1 << 20, DefaultPayloadBytes: 1024}, zaptest.NewLogger(t))
	session := entities.NewRunSession("session-1")

	run, _ := service.StartRun(session, 0)
	result := entities.TransferResult{BytesTransferred: 1024, Elapsed: time.Millisecond}

	report, err := service.CompleteRun(context.Background(), session, run.ID, result, result)
	if err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}
	if report == nil || session.State() != entities.RunStateIdle {
		t.Error("Expected report and idle session despite storage failure")
	}
}

func TestSpeedTestService_FailRun(t *testing.T) {
	service, _ := newTestService(t)
	session := entities.NewRunSession("session-1")

	run, _ := service.StartRun(session, 0)
	if err := service.FailRun(session, "unknown", "timeout"); !errors.Is(err, entities.ErrStaleRun) {
		t.Errorf("Expected ErrStaleRun, got %v", err)
	}
	if err := service.FailRun(session, run.ID, "timeout"); err != nil {
		t.Fatalf("FailRun() error = %v", err)
	}
	if session.State() != entities.RunStateIdle {
		t.Errorf("Expected idle, got %s", session.State())
	}
}
