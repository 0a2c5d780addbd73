package engine

import (
	"fmt"
	"time"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// Scoring constants shared by aggregation and simulation.
const (
	// PartialCreditWeight is the weight a Partial control contributes to
	// the compliance score. Exactly half credit, by design.
	PartialCreditWeight = 0.5
	// CompliantThreshold is the minimum score for Compliant.
	CompliantThreshold = 80.0
	// PartiallyCompliantThreshold is the minimum score for Partially
	// Compliant; below it a framework is Not Compliant.
	PartiallyCompliantThreshold = 60.0
)

// FrameworkOutcome bundles everything one framework's aggregation
// produces: the scored result plus the mapping and gap batches destined
// for bulk persistence.
type FrameworkOutcome struct {
	Result   model.ComplianceResult
	Mappings []model.Mapping
	Gaps     []model.Gap
}

// AggregateFramework matches every control of one framework against the
// normalized policy text and rolls the outcomes up into a compliance
// score, one mapping per control, and one gap per control classified
// Partial or Missing. It is total: empty catalogs and zero-keyword
// controls degrade to conservative Missing classification instead of
// failing.
func AggregateFramework(policyID, framework string, controls []model.Control, text *Text, now time.Time) FrameworkOutcome {
	out := FrameworkOutcome{
		Mappings: make([]model.Mapping, 0, len(controls)),
	}

	var covered, partial, missing int
	for _, ctrl := range controls {
		match := MatchControl(ctrl, text)
		confidence := Confidence(match.MatchedCount, match.TotalKeywords)

		switch Classify(confidence) {
		case CoverageCovered:
			covered++
		case CoveragePartial:
			partial++
			out.Gaps = append(out.Gaps, newGap(policyID, framework, ctrl))
		case CoverageMissing:
			missing++
			out.Gaps = append(out.Gaps, newGap(policyID, framework, ctrl))
		}

		out.Mappings = append(out.Mappings, model.Mapping{
			PolicyID:        policyID,
			ControlID:       ctrl.Code,
			Framework:       framework,
			EvidenceSnippet: match.Evidence,
			Confidence:      confidence,
			Rationale:       Rationale(confidence, match.MatchedCount, match.TotalKeywords),
			Decision:        Decide(confidence),
		})
	}

	out.Result = model.ComplianceResult{
		PolicyID:   policyID,
		Framework:  framework,
		Score:      ComplianceScore(covered, partial, len(controls)),
		Covered:    covered,
		Partial:    partial,
		Missing:    missing,
		Status:     ScoreStatus(ComplianceScore(covered, partial, len(controls))),
		AnalyzedAt: now,
	}
	return out
}

// ComplianceScore computes ((covered + 0.5*partial) / total) * 100, or 0
// for an empty catalog.
func ComplianceScore(covered, partial, total int) float64 {
	if total <= 0 {
		return 0
	}
	return (float64(covered) + PartialCreditWeight*float64(partial)) / float64(total) * 100
}

// ScoreStatus maps a compliance score to its framework status.
func ScoreStatus(score float64) model.ComplianceStatus {
	switch {
	case score >= CompliantThreshold:
		return model.StatusCompliant
	case score >= PartiallyCompliantThreshold:
		return model.StatusPartiallyCompliant
	default:
		return model.StatusNotCompliant
	}
}

func newGap(policyID, framework string, ctrl model.Control) model.Gap {
	return model.Gap{
		PolicyID:    policyID,
		Framework:   framework,
		ControlID:   ctrl.Code,
		ControlName: ctrl.Title,
		Severity:    ctrl.GapSeverity(),
		Status:      model.GapStatusOpen,
		Description: fmt.Sprintf("Control %s not adequately covered in policy", ctrl.Code),
	}
}
