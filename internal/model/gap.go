package model

// GapStatus tracks remediation progress for a gap.
type GapStatus string

const (
	GapStatusOpen       GapStatus = "Open"
	GapStatusInProgress GapStatus = "In Progress"
	GapStatusResolved   GapStatus = "Resolved"
	GapStatusDeferred   GapStatus = "Deferred"
)

// Gap is a tracked remediation item for a control classified Partial or
// Missing. Covered controls never produce gaps.
type Gap struct {
	ID          string    `json:"id"`
	PolicyID    string    `json:"policy_id"`
	Framework   string    `json:"framework"`
	ControlID   string    `json:"control_id"`
	ControlName string    `json:"control_name"`
	Severity    Severity  `json:"severity"`
	Status      GapStatus `json:"status"`
	Description string    `json:"description"`
	Owner       string    `json:"owner,omitempty"`
}
