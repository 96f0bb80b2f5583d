package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/echo/server/domain/entities"
)

// NotAvailable is displayed for phases that could not be measured
const NotAvailable = "N/A"

// ReportView is a run report formatted for display
type ReportView struct {
	PayloadMB    string `json:"payload_mb"`
	Download     string `json:"download"`
	Upload       string `json:"upload"`
	DownloadTime string `json:"download_time"`
	UploadTime   string `json:"upload_time"`
	TotalTime    string `json:"total_time"`
}

// BuildReport turns a finished run into a report. Throughput is kept at full
// precision; rounding only happens in NewReportView.
func BuildReport(sessionID string, run *entities.TestRun) *entities.RunReport {
	report := &entities.RunReport{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		RunID:            run.ID,
		PayloadSizeBytes: run.PayloadSizeBytes,
		TotalSeconds:     run.TotalDuration().Seconds(),
		CreatedAt:        time.Now(),
	}

	if run.Download != nil {
		report.DownloadBytes = run.Download.BytesTransferred
		report.DownloadSeconds = run.Download.ElapsedSeconds()
	}
	if m := run.DownloadMetric(); m != nil {
		mbps := m.MegabitsPerSecond
		report.DownloadMbps = &mbps
	}

	if run.Upload != nil {
		report.UploadBytes = run.Upload.BytesTransferred
		report.UploadSeconds = run.Upload.ElapsedSeconds()
	}
	if m := run.UploadMetric(); m != nil {
		mbps := m.MegabitsPerSecond
		report.UploadMbps = &mbps
	}

	return report
}

// FormatMbps renders a throughput value, N/A when missing
func FormatMbps(mbps *float64) string {
	if mbps == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f Mbps", *mbps)
}

// FormatSeconds renders a phase duration, N/A when not positive
func FormatSeconds(seconds float64) string {
	if seconds <= 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f s", seconds)
}

// NewReportView formats a report for display
func NewReportView(report *entities.RunReport) ReportView {
	return ReportView{
		PayloadMB:    fmt.Sprintf("%.2f MB", float64(report.PayloadSizeBytes)/(1<<20)),
		Download:     FormatMbps(report.DownloadMbps),
		Upload:       FormatMbps(report.UploadMbps),
		DownloadTime: FormatSeconds(report.DownloadSeconds),
		UploadTime:   FormatSeconds(report.UploadSeconds),
		TotalTime:    FormatSeconds(report.TotalSeconds),
	}
}

// Summary renders the view on one line
func (v ReportView) Summary() string {
	return fmt.Sprintf("download %s (%s), upload %s (%s), total %s, payload %s",
		v.Download, v.DownloadTime, v.Upload, v.UploadTime, v.TotalTime, v.PayloadMB)
}
