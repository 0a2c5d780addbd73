package model

import "time"

// PolicyStatus represents the lifecycle state of an uploaded policy document.
type PolicyStatus string

const (
	PolicyStatusUploaded   PolicyStatus = "uploaded"
	PolicyStatusProcessing PolicyStatus = "processing"
	PolicyStatusAnalyzed   PolicyStatus = "analyzed"
	PolicyStatusFailed     PolicyStatus = "failed"
	PolicyStatusArchived   PolicyStatus = "archived"
)

// policyTransitions is the allowed state-machine edge set. Status is
// monotonic except for the failed -> processing retry path; archived is
// terminal.
var policyTransitions = map[PolicyStatus][]PolicyStatus{
	PolicyStatusUploaded:   {PolicyStatusProcessing, PolicyStatusArchived},
	PolicyStatusProcessing: {PolicyStatusAnalyzed, PolicyStatusFailed},
	PolicyStatusAnalyzed:   {PolicyStatusProcessing, PolicyStatusArchived},
	PolicyStatusFailed:     {PolicyStatusProcessing, PolicyStatusArchived},
	PolicyStatusArchived:   nil,
}

// CanTransition reports whether the state machine allows moving from s to
// the given status.
func (s PolicyStatus) CanTransition(to PolicyStatus) bool {
	for _, next := range policyTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AnalyzableStatuses lists the states from which an analysis run may claim
// a policy. The claim itself is a conditional update owned by the store, so
// two concurrent runs race on the database row rather than on this list.
func AnalyzableStatuses() []PolicyStatus {
	return []PolicyStatus{PolicyStatusUploaded, PolicyStatusFailed, PolicyStatusAnalyzed}
}

// Policy represents one uploaded policy document.
type Policy struct {
	ID             string       `json:"id"`
	FileName       string       `json:"file_name"`
	FileURL        string       `json:"file_url,omitempty"`
	ContentPreview string       `json:"content_preview,omitempty"`
	Status         PolicyStatus `json:"status"`
	UploadedBy     string       `json:"uploaded_by,omitempty"`
	LastAnalyzedAt *time.Time   `json:"last_analyzed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
