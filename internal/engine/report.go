package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearcomply/compliance-cli/internal/blob"
	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// openGapsListed caps how many open gaps the executive summary names
// before collapsing the rest into an overflow line.
const openGapsListed = 10

// Reporter compiles stored analysis artifacts into one of the fixed
// textual report layouts and hands the blob to storage.
type Reporter struct {
	store   store.Store
	storage blob.Storage
	actor   string
}

// NewReporter creates a Reporter.
func NewReporter(st store.Store, storage blob.Storage, actor string) *Reporter {
	return &Reporter{store: st, storage: storage, actor: actor}
}

// Compile renders the requested report for a policy, stores the rendered
// blob, persists the report record, and appends an audit entry. The
// framework filter applies to compliance results only; gap sections always
// cover the whole policy.
func (r *Reporter) Compile(ctx context.Context, policyID string, reportType model.ReportType, format string, frameworks []string) (*model.Report, error) {
	if policyID == "" {
		return nil, eris.Wrap(ErrValidation, "engine: policy_id is required")
	}

	policy, err := r.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: get policy")
	}
	if policy == nil {
		return nil, eris.Wrapf(ErrNotFound, "engine: policy %s", policyID)
	}

	results, err := r.store.ListComplianceResults(ctx, policyID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list results")
	}
	if len(frameworks) > 0 {
		included := make(map[string]bool, len(frameworks))
		for _, fw := range frameworks {
			included[fw] = true
		}
		filtered := results[:0]
		for _, res := range results {
			if included[res.Framework] {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}

	gaps, err := r.store.ListGaps(ctx, store.GapFilter{PolicyID: policyID})
	if err != nil {
		return nil, eris.Wrap(err, "engine: list gaps")
	}

	now := time.Now().UTC()
	content := RenderReport(policy, results, gaps, reportType, now)

	name := fmt.Sprintf("report_%s_%d.txt", policyID, now.UnixMilli())
	url, err := r.storage.Put(ctx, name, []byte(content))
	if err != nil {
		return nil, eris.Wrap(err, "engine: store report blob")
	}

	report := &model.Report{
		PolicyID:    policyID,
		Type:        reportType,
		Format:      format,
		Status:      "Completed",
		DownloadURL: url,
		Frameworks:  frameworks,
		GeneratedAt: now,
	}
	if err := r.store.CreateReport(ctx, report); err != nil {
		return nil, eris.Wrap(err, "engine: persist report")
	}

	if err := r.store.AppendAudit(ctx, &model.AuditEntry{
		Actor:      r.actor,
		Action:     model.AuditActionReportGenerate,
		TargetType: "report",
		TargetID:   report.ID,
		Details:    fmt.Sprintf("Generated %s report in %s format", reportType, format),
		CreatedAt:  now,
	}); err != nil {
		return nil, eris.Wrap(err, "engine: append audit")
	}

	zap.L().Info("engine: report compiled",
		zap.String("policy_id", policyID),
		zap.String("type", string(reportType)),
		zap.String("url", url),
	)
	return report, nil
}

// RenderReport produces the report body for one of the fixed layouts.
// Unknown types fall back to the generic detailed-analysis layout.
func RenderReport(policy *model.Policy, results []model.ComplianceResult, gaps []model.Gap, reportType model.ReportType, now time.Time) string {
	switch reportType {
	case model.ReportExecutiveSummary:
		return renderExecutiveSummary(policy, results, gaps, now)
	case model.ReportGapReport:
		return renderGapReport(policy, gaps, now)
	default:
		return renderDetailedAnalysis(policy)
	}
}

func renderExecutiveSummary(policy *model.Policy, results []model.ComplianceResult, gaps []model.Gap, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compliance Analysis Report\n")
	fmt.Fprintf(&b, "**Policy:** %s\n", policy.FileName)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(time.RFC3339))

	b.WriteString("## Executive Summary\n")
	fmt.Fprintf(&b, "This report provides an overview of compliance analysis results across %d framework(s).\n\n", len(results))

	b.WriteString("## Compliance Scores\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s\n", r.Framework)
		fmt.Fprintf(&b, "- **Score:** %d%%\n", int(math.Round(r.Score)))
		fmt.Fprintf(&b, "- **Status:** %s\n", r.Status)
		fmt.Fprintf(&b, "- **Controls Covered:** %d\n", r.Covered)
		fmt.Fprintf(&b, "- **Controls Partial:** %d\n", r.Partial)
		fmt.Fprintf(&b, "- **Controls Missing:** %d\n\n", r.Missing)
	}

	var open []model.Gap
	for _, g := range gaps {
		if g.Status == model.GapStatusOpen {
			open = append(open, g)
		}
	}

	b.WriteString("## Open Gaps\n")
	fmt.Fprintf(&b, "Total: %d\n", len(open))
	for i, g := range open {
		if i >= openGapsListed {
			break
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", g.ControlID, g.Severity, g.ControlName)
	}
	if len(open) > openGapsListed {
		fmt.Fprintf(&b, "\n... and %d more gaps\n", len(open)-openGapsListed)
	}

	return b.String()
}

func renderGapReport(policy *model.Policy, gaps []model.Gap, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Gap Analysis Report\n")
	fmt.Fprintf(&b, "**Policy:** %s\n", policy.FileName)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(time.RFC3339))

	byStatus := make(map[model.GapStatus]int)
	bySeverity := make(map[model.Severity]int)
	for _, g := range gaps {
		byStatus[g.Status]++
		bySeverity[g.Severity]++
	}

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total Gaps: %d\n", len(gaps))
	fmt.Fprintf(&b, "- Open: %d\n", byStatus[model.GapStatusOpen])
	fmt.Fprintf(&b, "- In Progress: %d\n", byStatus[model.GapStatusInProgress])
	fmt.Fprintf(&b, "- Resolved: %d\n\n", byStatus[model.GapStatusResolved])

	b.WriteString("## Gaps by Severity\n")
	fmt.Fprintf(&b, "- Critical: %d\n", bySeverity[model.SeverityCritical])
	fmt.Fprintf(&b, "- High: %d\n", bySeverity[model.SeverityHigh])
	fmt.Fprintf(&b, "- Medium: %d\n", bySeverity[model.SeverityMedium])
	fmt.Fprintf(&b, "- Low: %d\n\n", bySeverity[model.SeverityLow])

	b.WriteString("## Gap Details\n")
	for _, g := range gaps {
		owner := g.Owner
		if owner == "" {
			owner = "Unassigned"
		}
		fmt.Fprintf(&b, "### %s - %s\n", g.ControlID, g.ControlName)
		fmt.Fprintf(&b, "- **Framework:** %s\n", g.Framework)
		fmt.Fprintf(&b, "- **Severity:** %s\n", g.Severity)
		fmt.Fprintf(&b, "- **Status:** %s\n", g.Status)
		fmt.Fprintf(&b, "- **Owner:** %s\n", owner)
		fmt.Fprintf(&b, "- **Description:** %s\n\n", g.Description)
	}

	return b.String()
}

func renderDetailedAnalysis(policy *model.Policy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Detailed Compliance Analysis\n")
	fmt.Fprintf(&b, "**Policy:** %s\n\n", policy.FileName)
	b.WriteString("Complete analysis results across all frameworks with detailed control mappings.\n")
	return b.String()
}
