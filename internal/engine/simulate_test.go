package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcomply/compliance-cli/internal/model"
)

func TestProject_AdditiveImpact(t *testing.T) {
	results := []model.ComplianceResult{
		{Framework: "ISO 27001", Score: 60, Covered: 6, Missing: 4},
	}
	candidates := []model.Control{
		{Framework: "ISO 27001", Code: "A.9"},
		{Framework: "ISO 27001", Code: "A.12"},
	}

	p := Project(results, candidates, nil)

	require.Len(t, p.Projected, 1)
	// Two controls at 1.5 points each.
	assert.Equal(t, 60, p.Projected[0].CurrentScore)
	assert.Equal(t, 63, p.Projected[0].ProjectedScore)
	assert.Equal(t, 3, p.Projected[0].Improvement)
	assert.Equal(t, 2, p.Projected[0].ControlsMissing)
	assert.Equal(t, 3, p.TotalImpact)
}

func TestProject_CapAt100(t *testing.T) {
	results := []model.ComplianceResult{
		{Framework: "SOC 2", Score: 99.5},
	}
	candidates := []model.Control{
		{Framework: "SOC 2", Code: "CC1"},
		{Framework: "SOC 2", Code: "CC2"},
	}

	p := Project(results, candidates, nil)
	assert.Equal(t, 100, p.Projected[0].ProjectedScore)
	assert.Equal(t, 1, p.Projected[0].Improvement)
}

func TestProject_MissingNeverNegative(t *testing.T) {
	results := []model.ComplianceResult{
		{Framework: "SOC 2", Score: 50, Missing: 1},
	}
	candidates := []model.Control{
		{Framework: "SOC 2", Code: "CC1"},
		{Framework: "SOC 2", Code: "CC2"},
		{Framework: "SOC 2", Code: "CC3"},
	}

	p := Project(results, candidates, nil)
	assert.Equal(t, 0, p.Projected[0].ControlsMissing)
}

func TestProject_FrameworkWithoutCandidatesUnchanged(t *testing.T) {
	results := []model.ComplianceResult{
		{Framework: "SOC 2", Score: 70},
		{Framework: "HIPAA", Score: 40},
	}
	candidates := []model.Control{
		{Framework: "SOC 2", Code: "CC1"},
	}

	p := Project(results, candidates, nil)
	require.Len(t, p.Projected, 2)
	assert.Equal(t, 72, p.Projected[0].ProjectedScore)
	assert.Equal(t, 40, p.Projected[1].ProjectedScore)
	assert.Equal(t, 0, p.Projected[1].Improvement)
	// Mean over frameworks with candidates only.
	assert.Equal(t, 2, p.TotalImpact)
}

func TestProject_GapsResolvedCountsOpenOnly(t *testing.T) {
	gaps := []model.Gap{
		{ControlID: "CC1", Status: model.GapStatusOpen},
		{ControlID: "CC2", Status: model.GapStatusResolved},
		{ControlID: "CC3", Status: model.GapStatusOpen},
		{ControlID: "CC4", Status: model.GapStatusOpen},
	}
	candidates := []model.Control{
		{Framework: "SOC 2", Code: "CC1"},
		{Framework: "SOC 2", Code: "CC2"},
		{Framework: "SOC 2", Code: "CC3"},
	}

	p := Project(nil, candidates, gaps)
	assert.Equal(t, 2, p.GapsResolved)
}

func TestProject_Empty(t *testing.T) {
	p := Project(nil, nil, nil)
	assert.Empty(t, p.Projected)
	assert.Zero(t, p.TotalImpact)
	assert.Zero(t, p.GapsResolved)
}

func TestSimulate_Validation(t *testing.T) {
	proj := NewProjector(newMemStore())
	_, err := proj.Simulate(context.Background(), "", []string{"CC1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSimulate_PolicyNotFound(t *testing.T) {
	proj := NewProjector(newMemStore())
	_, err := proj.Simulate(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSimulate_EndToEnd(t *testing.T) {
	st := newMemStore()
	st.policies["pol-1"] = &model.Policy{ID: "pol-1", Status: model.PolicyStatusAnalyzed}
	st.results = []model.ComplianceResult{
		{PolicyID: "pol-1", Framework: "ISO 27001", Score: 60, Missing: 4},
	}
	st.gaps = []model.Gap{
		{PolicyID: "pol-1", ControlID: "A.9", Status: model.GapStatusOpen},
	}
	_, err := st.CreateControls(context.Background(), []model.Control{
		{ID: "ctl-1", Framework: "ISO 27001", Code: "A.9"},
		{ID: "ctl-2", Framework: "ISO 27001", Code: "A.12"},
	})
	require.NoError(t, err)

	proj := NewProjector(st)
	p, err := proj.Simulate(context.Background(), "pol-1", []string{"ctl-1", "ctl-2"})
	require.NoError(t, err)

	assert.Equal(t, 2, p.ControlsImplemented)
	assert.Equal(t, 1, p.GapsResolved)
	require.Len(t, p.Projected, 1)
	assert.Equal(t, 63, p.Projected[0].ProjectedScore)
}
