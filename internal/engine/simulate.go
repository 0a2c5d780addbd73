package engine

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// ControlImpact is the fixed score improvement, in percentage points,
// attributed to implementing one control. Impacts from multiple controls
// in the same framework are additive, not diminishing.
const ControlImpact = 1.5

// ProjectedResult is the what-if outcome for one framework.
type ProjectedResult struct {
	Framework       string `json:"framework"`
	CurrentScore    int    `json:"current_score"`
	ProjectedScore  int    `json:"projected_score"`
	Improvement     int    `json:"improvement"`
	ControlsCovered int    `json:"controls_covered"`
	ControlsMissing int    `json:"controls_missing"`
}

// CurrentScore is one framework's present score, for side-by-side display.
type CurrentScore struct {
	Framework string `json:"framework"`
	Score     int    `json:"score"`
}

// Projection is the full simulation response.
type Projection struct {
	Current             []CurrentScore    `json:"current_results"`
	Projected           []ProjectedResult `json:"projected_results"`
	ControlsImplemented int               `json:"controls_implemented"`
	GapsResolved        int               `json:"gaps_resolved"`
	TotalImpact         int               `json:"total_impact"`
}

// Projector estimates score improvements from hypothetical control
// implementations. It only reads stored artifacts and never mutates state.
type Projector struct {
	store store.Store
}

// NewProjector creates a Projector.
func NewProjector(st store.Store) *Projector {
	return &Projector{store: st}
}

// Simulate projects the policy's scores as if the given controls were
// implemented. Frameworks with no current result are silently skipped.
func (p *Projector) Simulate(ctx context.Context, policyID string, controlIDs []string) (*Projection, error) {
	if policyID == "" {
		return nil, eris.Wrap(ErrValidation, "engine: policy_id is required")
	}

	policy, err := p.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: get policy")
	}
	if policy == nil {
		return nil, eris.Wrapf(ErrNotFound, "engine: policy %s", policyID)
	}

	results, err := p.store.ListComplianceResults(ctx, policyID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list results")
	}
	controls, err := p.store.GetControlsByID(ctx, controlIDs)
	if err != nil {
		return nil, eris.Wrap(err, "engine: get candidate controls")
	}
	gaps, err := p.store.ListGaps(ctx, store.GapFilter{PolicyID: policyID})
	if err != nil {
		return nil, eris.Wrap(err, "engine: list gaps")
	}

	projection := Project(results, controls, gaps)
	projection.ControlsImplemented = len(controlIDs)
	return &projection, nil
}

// Project is the pure projection math over already-fetched data. Each
// candidate control contributes ControlImpact points to its framework;
// projected scores are capped at 100 and never drop below the current
// score. The projected missing count is a best-effort approximation
// (current missing minus candidates in that framework), not a re-run of
// the matching pipeline. TotalImpact is the mean of per-framework impacts,
// unweighted by control count.
func Project(results []model.ComplianceResult, candidates []model.Control, gaps []model.Gap) Projection {
	impactByFramework := make(map[string]float64)
	candidatesByFramework := make(map[string]int)
	candidateCodes := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		impactByFramework[c.Framework] += ControlImpact
		candidatesByFramework[c.Framework]++
		candidateCodes[c.Code] = true
	}

	projection := Projection{}
	for _, r := range results {
		impact := impactByFramework[r.Framework]
		projected := math.Min(100, r.Score+impact)

		projection.Current = append(projection.Current, CurrentScore{
			Framework: r.Framework,
			Score:     int(math.Round(r.Score)),
		})
		projection.Projected = append(projection.Projected, ProjectedResult{
			Framework:       r.Framework,
			CurrentScore:    int(math.Round(r.Score)),
			ProjectedScore:  int(math.Round(projected)),
			Improvement:     int(math.Round(projected - r.Score)),
			ControlsCovered: r.Covered,
			ControlsMissing: max(0, r.Missing-candidatesByFramework[r.Framework]),
		})
	}

	for _, g := range gaps {
		if g.Status == model.GapStatusOpen && candidateCodes[g.ControlID] {
			projection.GapsResolved++
		}
	}

	if len(impactByFramework) > 0 {
		var total float64
		for _, impact := range impactByFramework {
			total += impact
		}
		projection.TotalImpact = int(math.Round(total / float64(len(impactByFramework))))
	}
	return projection
}
