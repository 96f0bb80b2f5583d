package api

import (
	"time"

	"github.com/satriahrh/echo/server/domain/entities"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SessionResponse carries the token a browser uses to open the run socket
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// SpeedTestConfigResponse describes the payload bounds clients may request
type SpeedTestConfigResponse struct {
	MaxPayloadBytes     int64 `json:"max_payload_bytes"`
	DefaultPayloadBytes int64 `json:"default_payload_bytes"`
	MinSizeMB           int   `json:"min_size_mb"`
	MaxSizeMB           int   `json:"max_size_mb"`
}

// ReportsResponse lists stored run reports, newest first
type ReportsResponse struct {
	Reports []*entities.RunReport `json:"reports"`
}
