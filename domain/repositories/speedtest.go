package repositories

import (
	"context"
	"io"
	"time"

	"github.com/satriahrh/echo/server/domain/entities"
)

// PayloadSource produces speed test payloads. Only the size of a payload
// matters, never its content.
type PayloadSource interface {
	// Generate returns a buffer of exactly size bytes
	Generate(size int64) ([]byte, error)
	// Stream writes exactly size bytes to w, chunk by chunk
	Stream(ctx context.Context, w io.Writer, size int64) (int64, error)
	// MaxSize is the largest payload the source will produce
	MaxSize() int64
}

// ReportRepository stores completed run reports
type ReportRepository interface {
	Save(ctx context.Context, report *entities.RunReport) error
	ListRecent(ctx context.Context, limit int) ([]*entities.RunReport, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RunReport, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
