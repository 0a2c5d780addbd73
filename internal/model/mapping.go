package model

// MappingDecision is the review state of a control mapping. Only Pending
// and Accepted are produced by analysis; Rejected and Modified come from
// human review, which lives outside this engine.
type MappingDecision string

const (
	DecisionPending  MappingDecision = "Pending"
	DecisionAccepted MappingDecision = "Accepted"
	DecisionRejected MappingDecision = "Rejected"
	DecisionModified MappingDecision = "Modified"
)

// Mapping is the evidentiary record linking one control to one policy's
// analysis outcome.
type Mapping struct {
	ID              string          `json:"id"`
	PolicyID        string          `json:"policy_id"`
	ControlID       string          `json:"control_id"`
	Framework       string          `json:"framework"`
	EvidenceSnippet string          `json:"evidence_snippet"`
	Confidence      float64         `json:"confidence_score"`
	Rationale       string          `json:"rationale"`
	Decision        MappingDecision `json:"decision"`
}
