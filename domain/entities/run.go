package entities

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStaleRun is returned when a result arrives for a run that is no longer current
var ErrStaleRun = errors.New("run is no longer current")

// RunState represents the state of a session's measurement
type RunState string

const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
)

// TestRun is one download+upload measurement cycle
type TestRun struct {
	ID               string          `json:"id"`
	PayloadSizeBytes int64           `json:"payload_size_bytes"`
	Download         *TransferResult `json:"download,omitempty"`
	Upload           *TransferResult `json:"upload,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// NewTestRun creates a run with a fresh identifier
func NewTestRun(payloadSizeBytes int64) *TestRun {
	return &TestRun{
		ID:               uuid.New().String(),
		PayloadSizeBytes: payloadSizeBytes,
		StartedAt:        time.Now(),
	}
}

// DownloadMetric returns the download throughput, nil when not measurable
func (r *TestRun) DownloadMetric() *ThroughputMetric {
	return metricOf(r.Download)
}

// UploadMetric returns the upload throughput, nil when not measurable
func (r *TestRun) UploadMetric() *ThroughputMetric {
	return metricOf(r.Upload)
}

// TotalDuration is the sum of both phases
func (r *TestRun) TotalDuration() time.Duration {
	var total time.Duration
	if r.Download != nil && r.Download.Elapsed > 0 {
		total += r.Download.Elapsed
	}
	if r.Upload != nil && r.Upload.Elapsed > 0 {
		total += r.Upload.Elapsed
	}
	return total
}

func metricOf(result *TransferResult) *ThroughputMetric {
	if result == nil {
		return nil
	}
	metric, err := result.Throughput()
	if err != nil {
		return nil
	}
	return &metric
}

// RunSession holds the measurement state of one client session. A newer run
// always wins: results for any run other than the current one are rejected.
type RunSession struct {
	SessionID string

	mu         sync.Mutex
	state      RunState
	current    *TestRun
	lastReport *RunReport
}

// NewRunSession creates an idle session
func NewRunSession(sessionID string) *RunSession {
	return &RunSession{
		SessionID: sessionID,
		state:     RunStateIdle,
	}
}

// State returns the current state
func (s *RunSession) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentRunID returns the id of the in-flight run, empty when idle
func (s *RunSession) CurrentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != RunStateRunning || s.current == nil {
		return ""
	}
	return s.current.ID
}

// LastReport returns the most recently accepted report
func (s *RunSession) LastReport() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// Begin starts a new run, superseding any run in flight. The superseded run
// id is returned so callers can log it.
func (s *RunSession) Begin(payloadSizeBytes int64) (run *TestRun, superseded string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == RunStateRunning && s.current != nil {
		superseded = s.current.ID
	}
	s.current = NewTestRun(payloadSizeBytes)
	s.state = RunStateRunning
	return s.current, superseded
}

// Complete records both phases for runID and returns to idle. build turns the
// finished run into the report that becomes the session's visible result.
func (s *RunSession) Complete(runID string, download, upload TransferResult, build func(*TestRun) *RunReport) (*RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RunStateRunning || s.current == nil || s.current.ID != runID {
		return nil, fmt.Errorf("%w: %s", ErrStaleRun, runID)
	}

	now := time.Now()
	run := s.current
	run.Download = &download
	run.Upload = &upload
	run.CompletedAt = &now

	report := build(run)
	s.lastReport = report
	s.current = nil
	s.state = RunStateIdle
	return report, nil
}

// Fail discards the current run if runID matches it
func (s *RunSession) Fail(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RunStateRunning || s.current == nil || s.current.ID != runID {
		return fmt.Errorf("%w: %s", ErrStaleRun, runID)
	}
	s.current = nil
	s.state = RunStateIdle
	return nil
}
