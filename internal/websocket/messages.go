package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/usecase"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages sent by the browser
const (
	MessageTypeRunStart  MessageType = "run_start"
	MessageTypeRunResult MessageType = "run_result"
	MessageTypeRunFailed MessageType = "run_failed"
	MessageTypePing      MessageType = "ping"
)

// Messages sent by the server
const (
	MessageTypeRunStarted   MessageType = "run_started"
	MessageTypeRunReport    MessageType = "run_report"
	MessageTypeRunDiscarded MessageType = "run_discarded"
	MessageTypePong         MessageType = "pong"
	MessageTypeError        MessageType = "error"
)

// Slider bounds of the payload size picker, in megabytes
const (
	MinSizeMB = 1
	MaxSizeMB = 100
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// RunStartMessage asks for a new run. SizeBytes wins over SizeMB; when
// neither is set the server default applies.
type RunStartMessage struct {
	BaseMessage
	SizeBytes int64 `json:"size_bytes,omitempty"`
	SizeMB    int   `json:"size_mb,omitempty"`
}

// PayloadBytes resolves the requested size, zero meaning "use the default"
func (m *RunStartMessage) PayloadBytes() int64 {
	if m.SizeBytes > 0 {
		return m.SizeBytes
	}
	if m.SizeMB > 0 {
		return int64(m.SizeMB) << 20
	}
	return 0
}

// PhaseMeasurement is one phase as timed by the browser
type PhaseMeasurement struct {
	Bytes          int64   `json:"bytes"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// RunResultMessage carries the browser's measurements for a run
type RunResultMessage struct {
	BaseMessage
	RunID    string           `json:"run_id"`
	Download PhaseMeasurement `json:"download"`
	Upload   PhaseMeasurement `json:"upload"`
}

// RunFailedMessage reports that the browser could not finish a run
type RunFailedMessage struct {
	BaseMessage
	RunID  string `json:"run_id"`
	Reason string `json:"reason,omitempty"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// RunStartedMessage tells the browser which run to measure and where
type RunStartedMessage struct {
	BaseMessage
	RunID       string `json:"run_id"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
	UploadURL   string `json:"upload_url"`
}

// RunReportMessage carries the accepted result of a run
type RunReportMessage struct {
	BaseMessage
	RunID   string              `json:"run_id"`
	Report  *entities.RunReport `json:"report"`
	Display usecase.ReportView  `json:"display"`
}

// RunDiscardedMessage tells the browser a late result was ignored
type RunDiscardedMessage struct {
	BaseMessage
	RunID  string `json:"run_id"`
	Reason string `json:"reason"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeRunStart:
		var msg RunStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid run start message: %w", err)
		}
		if err := v.validateRunStart(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeRunResult:
		var msg RunResultMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid run result message: %w", err)
		}
		if err := v.validateRunResult(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeRunFailed:
		var msg RunFailedMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid run failed message: %w", err)
		}
		if msg.RunID == "" {
			return nil, fmt.Errorf("run_id is required")
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateRunStart(msg *RunStartMessage) error {
	if msg.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must not be negative")
	}
	if msg.SizeMB != 0 && (msg.SizeMB < MinSizeMB || msg.SizeMB > MaxSizeMB) {
		return fmt.Errorf("size_mb must be between %d and %d", MinSizeMB, MaxSizeMB)
	}
	return nil
}

func (v *MessageValidator) validateRunResult(msg *RunResultMessage) error {
	if msg.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if msg.Download.Bytes < 0 || msg.Upload.Bytes < 0 {
		return fmt.Errorf("bytes must not be negative")
	}
	return nil
}

func newBaseMessage(messageType MessageType) BaseMessage {
	return BaseMessage{
		Type:      messageType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBaseMessage(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBaseMessage(MessageTypePong),
		Data:        data,
	}
}
