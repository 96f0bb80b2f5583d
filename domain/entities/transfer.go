package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSize is returned for negative or non-numeric payload sizes
	ErrInvalidSize = errors.New("invalid payload size")
	// ErrPayloadTooLarge is returned when a size exceeds the configured ceiling
	ErrPayloadTooLarge = errors.New("payload size exceeds limit")
	// ErrZeroDuration marks a measurement whose elapsed time is not positive
	ErrZeroDuration = errors.New("measurement has no elapsed time")
)

// Direction is the direction of a transfer as seen by the client
type Direction string

const (
	DirectionDownload Direction = "download"
	DirectionUpload   Direction = "upload"
)

// TransferRequest asks for a payload of SizeBytes bytes
type TransferRequest struct {
	SizeBytes int64 `json:"size_bytes"`
}

// Validate checks the requested size against the ceiling. A ceiling of zero
// or less disables the upper bound.
func (r TransferRequest) Validate(maxBytes int64) error {
	if r.SizeBytes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, r.SizeBytes)
	}
	if maxBytes > 0 && r.SizeBytes > maxBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, r.SizeBytes, maxBytes)
	}
	return nil
}

// TransferResult is one timed transfer
type TransferResult struct {
	Direction        Direction     `json:"direction"`
	BytesTransferred int64         `json:"bytes"`
	Elapsed          time.Duration `json:"elapsed"`
}

// NewTransferResult builds a result from a byte count and elapsed seconds as
// reported by a browser clock.
func NewTransferResult(direction Direction, bytes int64, elapsedSeconds float64) TransferResult {
	return TransferResult{
		Direction:        direction,
		BytesTransferred: bytes,
		Elapsed:          time.Duration(elapsedSeconds * float64(time.Second)),
	}
}

// ElapsedSeconds returns the elapsed time in seconds
func (r TransferResult) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// Throughput derives the throughput of the transfer
func (r TransferResult) Throughput() (ThroughputMetric, error) {
	return NewThroughputMetric(r.BytesTransferred, r.Elapsed)
}

// ThroughputMetric is a transfer rate in megabits per second
type ThroughputMetric struct {
	MegabitsPerSecond float64 `json:"mbps"`
}

// NewThroughputMetric computes bytes*8/seconds/1e6. Elapsed must be positive.
func NewThroughputMetric(bytes int64, elapsed time.Duration) (ThroughputMetric, error) {
	if elapsed <= 0 {
		return ThroughputMetric{}, ErrZeroDuration
	}
	return ThroughputMetric{
		MegabitsPerSecond: float64(bytes) * 8 / elapsed.Seconds() / 1e6,
	}, nil
}

// String renders the metric with two decimals
func (m ThroughputMetric) String() string {
	return fmt.Sprintf("%.2f", m.MegabitsPerSecond)
}
