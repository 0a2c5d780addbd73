// Package store defines the persistence interface for the compliance
// engine and its Postgres and SQLite implementations.
package store

import (
	"context"
	"time"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// GapFilter narrows gap listings.
type GapFilter struct {
	PolicyID  string          `json:"policy_id,omitempty"`
	Framework string          `json:"framework,omitempty"`
	Status    model.GapStatus `json:"status,omitempty"`
}

// Store is the persistence boundary of the engine. Mapping and gap writes
// are bulk operations batched per analysis run to bound write
// amplification; everything else is row-at-a-time.
type Store interface {
	// Policies
	CreatePolicy(ctx context.Context, p *model.Policy) error
	GetPolicy(ctx context.Context, id string) (*model.Policy, error)
	ListPolicies(ctx context.Context) ([]model.Policy, error)
	// TransitionPolicyStatus is the compare-and-swap admission guard: it
	// moves the policy to the target status only if its current status is
	// one of from, and reports whether the row was claimed. This is what
	// keeps two concurrent analyses of the same policy from both running.
	TransitionPolicyStatus(ctx context.Context, id string, from []model.PolicyStatus, to model.PolicyStatus) (bool, error)
	MarkPolicyAnalyzed(ctx context.Context, id string, at time.Time) error

	// Control catalog
	CreateControls(ctx context.Context, controls []model.Control) (int, error)
	ListControls(ctx context.Context, framework string) ([]model.Control, error)
	GetControlsByID(ctx context.Context, ids []string) ([]model.Control, error)
	ListFrameworks(ctx context.Context) ([]string, error)

	// Analysis artifacts
	CreateComplianceResult(ctx context.Context, r *model.ComplianceResult) error
	ListComplianceResults(ctx context.Context, policyID string) ([]model.ComplianceResult, error)
	CreateMappings(ctx context.Context, mappings []model.Mapping) (int, error)
	CreateGaps(ctx context.Context, gaps []model.Gap) (int, error)
	ListGaps(ctx context.Context, filter GapFilter) ([]model.Gap, error)
	CreateInsight(ctx context.Context, in *model.Insight) error
	ListInsights(ctx context.Context, policyID string) ([]model.Insight, error)

	// Reports and audit trail
	CreateReport(ctx context.Context, rep *model.Report) error
	AppendAudit(ctx context.Context, e *model.AuditEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
