package entities

import (
	"time"
)

// RunReport is the outcome of a completed run as shown to the user.
// A nil Mbps value means the phase could not be measured.
type RunReport struct {
	ID               string    `json:"id" bson:"_id"`
	SessionID        string    `json:"session_id" bson:"session_id"`
	RunID            string    `json:"run_id" bson:"run_id"`
	PayloadSizeBytes int64     `json:"payload_size_bytes" bson:"payload_size_bytes"`
	DownloadBytes    int64     `json:"download_bytes" bson:"download_bytes"`
	UploadBytes      int64     `json:"upload_bytes" bson:"upload_bytes"`
	DownloadMbps     *float64  `json:"download_mbps" bson:"download_mbps"`
	UploadMbps       *float64  `json:"upload_mbps" bson:"upload_mbps"`
	DownloadSeconds  float64   `json:"download_seconds" bson:"download_seconds"`
	UploadSeconds    float64   `json:"upload_seconds" bson:"upload_seconds"`
	TotalSeconds     float64   `json:"total_seconds" bson:"total_seconds"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
