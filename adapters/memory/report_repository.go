package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/domain/repositories"
)

const defaultCapacity = 1000

// ReportRepository is an in-memory implementation of ReportRepository.
// It keeps at most capacity reports and drops the oldest first.
type ReportRepository struct {
	mu       sync.RWMutex
	reports  []*entities.RunReport
	capacity int
}

var _ repositories.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new in-memory report repository
func NewReportRepository(capacity int) *ReportRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ReportRepository{
		reports:  make([]*entities.RunReport, 0),
		capacity: capacity,
	}
}

// Save implements repositories.ReportRepository
func (m *ReportRepository) Save(ctx context.Context, report *entities.RunReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *report
	m.reports = append(m.reports, &stored)
	if len(m.reports) > m.capacity {
		m.reports = m.reports[len(m.reports)-m.capacity:]
	}
	return nil
}

// ListRecent implements repositories.ReportRepository
func (m *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*entities.RunReport, error) {
	return m.list(func(*entities.RunReport) bool { return true }, limit), nil
}

// ListBySession implements repositories.ReportRepository
func (m *ReportRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RunReport, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	return m.list(func(r *entities.RunReport) bool { return r.SessionID == sessionID }, limit), nil
}

// DeleteOlderThan implements repositories.ReportRepository
func (m *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.reports[:0]
	var deleted int64
	for _, r := range m.reports {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.reports = kept
	return deleted, nil
}

func (m *ReportRepository) list(match func(*entities.RunReport) bool, limit int) []*entities.RunReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.RunReport, 0)
	for _, r := range m.reports {
		if match(r) {
			copied := *r
			result = append(result, &copied)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
