package model

import "time"

// ComplianceStatus is the overall verdict for one framework.
type ComplianceStatus string

const (
	StatusCompliant          ComplianceStatus = "Compliant"
	StatusPartiallyCompliant ComplianceStatus = "Partially Compliant"
	StatusNotCompliant       ComplianceStatus = "Not Compliant"
)

// ComplianceResult is one framework's scored outcome for one policy.
// Covered + Partial + Missing always equals the framework's control count.
type ComplianceResult struct {
	ID        string           `json:"id"`
	PolicyID  string           `json:"policy_id"`
	Framework string           `json:"framework"`
	Score     float64          `json:"compliance_score"`
	Covered   int              `json:"controls_covered"`
	Partial   int              `json:"controls_partial"`
	Missing   int              `json:"controls_missing"`
	Status    ComplianceStatus `json:"status"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
	Duration  int64            `json:"analysis_duration_ms"`
}
