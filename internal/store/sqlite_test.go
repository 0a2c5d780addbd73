package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcomply/compliance-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_PolicyRoundtrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	p := &model.Policy{FileName: "p.txt", ContentPreview: "text", UploadedBy: "alex"}
	require.NoError(t, st.CreatePolicy(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := st.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p.txt", got.FileName)
	assert.Equal(t, model.PolicyStatusUploaded, got.Status)
	assert.Nil(t, got.LastAnalyzedAt)

	missing, err := st.GetPolicy(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	policies, err := st.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 1)
}

func TestSQLiteStore_TransitionCAS(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	p := &model.Policy{FileName: "p.txt"}
	require.NoError(t, st.CreatePolicy(ctx, p))

	claimed, err := st.TransitionPolicyStatus(ctx, p.ID, model.AnalyzableStatuses(), model.PolicyStatusProcessing)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim must lose the race deterministically.
	claimed, err = st.TransitionPolicyStatus(ctx, p.ID, model.AnalyzableStatuses(), model.PolicyStatusProcessing)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, st.MarkPolicyAnalyzed(ctx, p.ID, time.Now().UTC()))
	got, err := st.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PolicyStatusAnalyzed, got.Status)
	assert.NotNil(t, got.LastAnalyzedAt)
}

func TestSQLiteStore_Controls(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	n, err := st.CreateControls(ctx, []model.Control{
		{Framework: "SOC 2", Code: "CC6.1", Title: "Access", Keywords: []string{"access", "mfa"}, SeverityIfMissing: model.SeverityHigh},
		{Framework: "SOC 2", Code: "CC7.2", Title: "Monitoring", Keywords: []string{"monitoring"}},
		{Framework: "ISO 27001", Code: "A.9", Title: "Access Control", Keywords: []string{"access"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	controls, err := st.ListControls(ctx, "SOC 2")
	require.NoError(t, err)
	require.Len(t, controls, 2)
	assert.Equal(t, []string{"access", "mfa"}, controls[0].Keywords)
	assert.Equal(t, model.SeverityHigh, controls[0].SeverityIfMissing)

	frameworks, err := st.ListFrameworks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ISO 27001", "SOC 2"}, frameworks)

	byID, err := st.GetControlsByID(ctx, []string{controls[0].ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "CC6.1", byID[0].Code)
}

func TestSQLiteStore_AnalysisArtifacts(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	p := &model.Policy{FileName: "p.txt"}
	require.NoError(t, st.CreatePolicy(ctx, p))

	result := &model.ComplianceResult{
		PolicyID: p.ID, Framework: "SOC 2", Score: 85,
		Covered: 8, Partial: 1, Missing: 1,
		Status: model.StatusCompliant, AnalyzedAt: time.Now().UTC(), Duration: 12,
	}
	require.NoError(t, st.CreateComplianceResult(ctx, result))

	results, err := st.ListComplianceResults(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 85.0, results[0].Score)

	n, err := st.CreateMappings(ctx, []model.Mapping{
		{PolicyID: p.ID, ControlID: "CC1", Framework: "SOC 2", EvidenceSnippet: "snippet",
			Confidence: 0.5, Rationale: "Partial match found with 2/4 keywords matched", Decision: model.DecisionPending},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.CreateGaps(ctx, []model.Gap{
		{PolicyID: p.ID, Framework: "SOC 2", ControlID: "CC1", ControlName: "Access",
			Severity: model.SeverityHigh, Status: model.GapStatusOpen, Description: "d"},
		{PolicyID: p.ID, Framework: "HIPAA", ControlID: "164", ControlName: "PHI",
			Severity: model.SeverityCritical, Status: model.GapStatusResolved, Description: "d"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	open, err := st.ListGaps(ctx, GapFilter{PolicyID: p.ID, Status: model.GapStatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "CC1", open[0].ControlID)

	hipaa, err := st.ListGaps(ctx, GapFilter{Framework: "HIPAA"})
	require.NoError(t, err)
	assert.Len(t, hipaa, 1)
}

func TestSQLiteStore_InsightsReportsAudit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	p := &model.Policy{FileName: "p.txt"}
	require.NoError(t, st.CreatePolicy(ctx, p))

	require.NoError(t, st.CreateInsight(ctx, &model.Insight{
		PolicyID: p.ID, Type: model.InsightGapPriority,
		Title: "2 Critical Gaps Require Immediate Attention",
		Description: "d", Priority: model.SeverityCritical,
		Confidence: 0.95, Status: "New",
	}))

	insights, err := st.ListInsights(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, model.InsightGapPriority, insights[0].Type)

	require.NoError(t, st.CreateReport(ctx, &model.Report{
		PolicyID: p.ID, Type: model.ReportGapReport, Format: "PDF",
		Status: "Completed", Frameworks: []string{"SOC 2"}, GeneratedAt: time.Now().UTC(),
	}))

	require.NoError(t, st.AppendAudit(ctx, &model.AuditEntry{
		Actor: "tester", Action: model.AuditActionAnalysisComplete,
		TargetType: "policy", TargetID: p.ID,
	}))
}
