package model

// Severity classifies how serious the absence of a control is.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// DefaultGapSeverity is used when a control has no configured
// severity_if_missing.
const DefaultGapSeverity = SeverityMedium

// Control is one atomic requirement within a compliance framework, tagged
// with the keywords used for matching. Keyword matching is case-insensitive
// substring containment; a control with no keywords is always classified
// uncovered rather than rejected.
type Control struct {
	ID                string   `json:"id"`
	Framework         string   `json:"framework"`
	Code              string   `json:"control_code"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Keywords          []string `json:"keywords"`
	SeverityIfMissing Severity `json:"severity_if_missing,omitempty"`
}

// GapSeverity returns the severity a gap for this control should carry,
// falling back to DefaultGapSeverity when unset.
func (c Control) GapSeverity() Severity {
	if c.SeverityIfMissing == "" {
		return DefaultGapSeverity
	}
	return c.SeverityIfMissing
}
