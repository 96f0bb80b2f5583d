package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/domain/repositories"
)

const reportCollection = "speedtest_reports"

// ReportRepository stores run reports in MongoDB
type ReportRepository struct {
	collection *mongo.Collection
}

var _ repositories.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new MongoDB report repository
func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		collection: db.Collection(reportCollection),
	}
}

// EnsureIndexes creates the indexes used by the list and cleanup queries
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create report indexes: %w", err)
	}
	return nil
}

// Save implements repositories.ReportRepository
func (r *ReportRepository) Save(ctx context.Context, report *entities.RunReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ListRecent implements repositories.ReportRepository
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*entities.RunReport, error) {
	return r.find(ctx, bson.M{}, limit)
}

// ListBySession implements repositories.ReportRepository
func (r *ReportRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RunReport, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	return r.find(ctx, bson.M{"session_id": sessionID}, limit)
}

// DeleteOlderThan implements repositories.ReportRepository
func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old reports: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *ReportRepository) find(ctx context.Context, filter bson.M, limit int) ([]*entities.RunReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := make([]*entities.RunReport, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, nil
}
