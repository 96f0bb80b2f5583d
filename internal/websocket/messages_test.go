package websocket

import (
	"encoding/json"
	"testing"
)

func TestMessageValidator_ValidateRunStart(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name      string
		message   string
		wantErr   bool
		wantBytes int64
	}{
		{
			name:      "size in megabytes",
			message:   `{"type": "run_start", "size_mb": 10}`,
			wantBytes: 10 << 20,
		},
		{
			name:      "size in bytes wins",
			message:   `{"type": "run_start", "size_mb": 10, "size_bytes": 1000}`,
			wantBytes: 1000,
		},
		{
			name:      "default size",
			message:   `{"type": "run_start"}`,
			wantBytes: 0,
		},
		{
			name:    "slider above range",
			message: `{"type": "run_start", "size_mb": 101}`,
			wantErr: true,
		},
		{
			name:    "negative bytes",
			message: `{"type": "run_start", "size_bytes": -1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			msg, ok := result.(*RunStartMessage)
			if !ok {
				t.Fatalf("Expected *RunStartMessage, got %T", result)
			}
			if msg.PayloadBytes() != tt.wantBytes {
				t.Errorf("Expected %d bytes, got %d", tt.wantBytes, msg.PayloadBytes())
			}
		})
	}
}

func TestMessageValidator_ValidateRunResult(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name: "valid result",
			message: `{
				"type": "run_result",
				"run_id": "run-1",
				"download": {"bytes": 1000000, "elapsed_seconds": 1.0},
				"upload": {"bytes": 1000000, "elapsed_seconds": 0.5}
			}`,
		},
		{
			name: "zero elapsed is accepted",
			message: `{
				"type": "run_result",
				"run_id": "run-1",
				"download": {"bytes": 10, "elapsed_seconds": 0},
				"upload": {"bytes": 10, "elapsed_seconds": 0}
			}`,
		},
		{
			name:    "missing run_id",
			message: `{"type": "run_result", "download": {"bytes": 1}, "upload": {"bytes": 1}}`,
			wantErr: true,
		},
		{
			name:    "negative bytes",
			message: `{"type": "run_result", "run_id": "run-1", "download": {"bytes": -1}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageValidator_ValidateRunFailed(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{"type": "run_failed", "reason": "timeout"}`)); err == nil {
		t.Error("Expected error for missing run_id")
	}

	result, err := validator.ValidateMessage([]byte(`{"type": "run_failed", "run_id": "run-1", "reason": "timeout"}`))
	if err != nil {
		t.Fatalf("ValidateMessage() error = %v", err)
	}
	if msg := result.(*RunFailedMessage); msg.Reason != "timeout" {
		t.Errorf("Expected reason timeout, got %s", msg.Reason)
	}
}

func TestMessageValidator_ValidatePing(t *testing.T) {
	validator := NewMessageValidator()

	result, err := validator.ValidateMessage([]byte(`{"type": "ping", "data": "test-ping"}`))
	if err != nil {
		t.Fatalf("ValidateMessage() error = %v", err)
	}

	pingMsg, ok := result.(*PingMessage)
	if !ok {
		t.Fatal("Expected PingMessage type")
	}
	if pingMsg.Data != "test-ping" {
		t.Errorf("Expected data 'test-ping', got '%s'", pingMsg.Data)
	}
}

func TestMessageValidator_InvalidMessages(t *testing.T) {
	validator := NewMessageValidator()

	for _, message := range []string{`not json`, `{"type": "audio_chunk"}`, `{}`} {
		if _, err := validator.ValidateMessage([]byte(message)); err == nil {
			t.Errorf("Expected error for %s", message)
		}
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "bad input", "details")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)

	if decoded["type"] != string(MessageTypeError) {
		t.Errorf("Expected type error, got %v", decoded["type"])
	}
	if decoded["error_code"] != "invalid_message" {
		t.Errorf("Expected error_code invalid_message, got %v", decoded["error_code"])
	}
	if decoded["timestamp"] == "" {
		t.Error("Expected timestamp to be set")
	}
}
