package model

import "time"

// Audit actions recorded by the engine.
const (
	AuditActionAnalysisComplete = "analysis_complete"
	AuditActionReportGenerate   = "report_generate"
)

// AuditEntry records one actor-visible action against a target entity.
type AuditEntry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
