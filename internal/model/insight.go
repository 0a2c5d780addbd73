package model

// InsightType identifies what kind of derived observation an insight is.
type InsightType string

const (
	// InsightGapPriority summarizes critical gaps found during one
	// analysis run. At most one is emitted per run, never one per gap.
	InsightGapPriority InsightType = "gap_priority"
)

// Insight is a derived observation surfaced to the user. Insights are
// produced deterministically from gap and result aggregates and are not
// independently mutable.
type Insight struct {
	ID          string      `json:"id"`
	PolicyID    string      `json:"policy_id"`
	Type        InsightType `json:"insight_type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    Severity    `json:"priority"`
	Confidence  float64     `json:"confidence"`
	Status      string      `json:"status"`
}
