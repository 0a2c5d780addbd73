package model

import "time"

// ReportType selects one of the fixed report layouts.
type ReportType string

const (
	ReportExecutiveSummary ReportType = "Executive Summary"
	ReportGapReport        ReportType = "Gap Report"
	ReportDetailedAnalysis ReportType = "Detailed Analysis"
)

// Report records one compiled report and where its rendered blob landed.
type Report struct {
	ID          string     `json:"id"`
	PolicyID    string     `json:"policy_id"`
	Type        ReportType `json:"report_type"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	DownloadURL string     `json:"download_url,omitempty"`
	Frameworks  []string   `json:"frameworks_included,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}
