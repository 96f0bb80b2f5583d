package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/echo/server/domain/entities"
)

// TestReportRepository_Integration requires a running MongoDB instance
// (skipped if MONGODB_URI is not set)
func TestReportRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{URI: mongoURI, Database: "echo_test"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		client.Database.Drop(ctx)
		client.Close(ctx)
	}()

	repo := NewReportRepository(client.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	mbps := 8.0
	now := time.Now()

	t.Run("SaveAndList", func(t *testing.T) {
		report := &entities.RunReport{
			SessionID:        "session-1",
			RunID:            "run-1",
			PayloadSizeBytes: 1_000_000,
			DownloadMbps:     &mbps,
			DownloadSeconds:  1,
			CreatedAt:        now,
		}
		if err := repo.Save(ctx, report); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if report.ID == "" {
			t.Fatal("Expected ID to be set")
		}

		reports, err := repo.ListBySession(ctx, "session-1", 10)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(reports) != 1 {
			t.Fatalf("Expected 1 report, got %d", len(reports))
		}
		if reports[0].DownloadMbps == nil || *reports[0].DownloadMbps != 8 {
			t.Errorf("Expected 8 Mbps, got %v", reports[0].DownloadMbps)
		}
		if reports[0].UploadMbps != nil {
			t.Errorf("Expected nil upload Mbps, got %v", *reports[0].UploadMbps)
		}
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		old := &entities.RunReport{SessionID: "session-2", CreatedAt: now.Add(-72 * time.Hour)}
		if err := repo.Save(ctx, old); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("DeleteOlderThan() error = %v", err)
		}
		if deleted != 1 {
			t.Errorf("Expected 1 deleted, got %d", deleted)
		}

		recent, err := repo.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("ListRecent() error = %v", err)
		}
		for _, r := range recent {
			if r.SessionID == "session-2" {
				t.Error("Expected old report to be deleted")
			}
		}
	})
}
