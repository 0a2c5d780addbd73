package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/clearcomply/compliance-cli/internal/engine"
	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// fakeStore embeds the interface so tests only override what a handler
// touches; calling anything else panics loudly.
type fakeStore struct {
	store.Store
	frameworks []string
	gaps       []model.Gap
	insights   []model.Insight
	policies   []model.Policy
}

func (f *fakeStore) ListFrameworks(ctx context.Context) ([]string, error) {
	return f.frameworks, nil
}

func (f *fakeStore) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	return f.policies, nil
}

func (f *fakeStore) ListGaps(ctx context.Context, filter store.GapFilter) ([]model.Gap, error) {
	return f.gaps, nil
}

func (f *fakeStore) ListInsights(ctx context.Context, policyID string) ([]model.Insight, error) {
	return f.insights, nil
}

type fakeAnalyzer struct {
	summary *engine.AnalysisSummary
	err     error
	gotFWs  []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, policyID string, frameworks []string) (*engine.AnalysisSummary, error) {
	f.gotFWs = frameworks
	return f.summary, f.err
}

type fakeProjector struct {
	projection *engine.Projection
	err        error
}

func (f *fakeProjector) Simulate(ctx context.Context, policyID string, controlIDs []string) (*engine.Projection, error) {
	return f.projection, f.err
}

type fakeReporter struct {
	report *model.Report
	err    error
}

func (f *fakeReporter) Compile(ctx context.Context, policyID string, reportType model.ReportType, format string, frameworks []string) (*model.Report, error) {
	return f.report, f.err
}

func newTestServer(st store.Store, a policyAnalyzer, p scoreProjector, r reportCompiler) http.Handler {
	s := &apiServer{
		store:     st,
		analyzer:  a,
		projector: p,
		reporter:  r,
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	return s.routes()
}

func TestAPI_Health(t *testing.T) {
	h := newTestServer(&fakeStore{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_Analyze(t *testing.T) {
	fa := &fakeAnalyzer{summary: &engine.AnalysisSummary{MappingsCreated: 3, GapsCreated: 1}}
	h := newTestServer(&fakeStore{}, fa, nil, nil)

	body := strings.NewReader(`{"policy_id":"pol-1","frameworks":["SOC 2"]}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"SOC 2"}, fa.gotFWs)

	var got engine.AnalysisSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.MappingsCreated)
}

func TestAPI_Analyze_DefaultsToAllFrameworks(t *testing.T) {
	fa := &fakeAnalyzer{summary: &engine.AnalysisSummary{}}
	h := newTestServer(&fakeStore{frameworks: []string{"SOC 2", "HIPAA"}}, fa, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"policy_id":"pol-1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"SOC 2", "HIPAA"}, fa.gotFWs)
}

func TestAPI_Analyze_BadBody(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeAnalyzer{}, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{engine.ErrNotFound, http.StatusNotFound},
		{engine.ErrValidation, http.StatusBadRequest},
		{engine.ErrExtraction, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestServer(&fakeStore{frameworks: []string{"SOC 2"}}, &fakeAnalyzer{err: tc.err}, nil, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"policy_id":"x"}`)))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestAPI_Simulate(t *testing.T) {
	fp := &fakeProjector{projection: &engine.Projection{TotalImpact: 3, GapsResolved: 2}}
	h := newTestServer(&fakeStore{}, nil, fp, nil)

	body := strings.NewReader(`{"policy_id":"pol-1","control_ids":["ctl-1","ctl-2"]}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/simulate", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var got engine.Projection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalImpact)
	assert.Equal(t, 2, got.GapsResolved)
}

func TestAPI_Report(t *testing.T) {
	fr := &fakeReporter{report: &model.Report{ID: "rep-1", Status: "Completed"}}
	h := newTestServer(&fakeStore{}, nil, nil, fr)

	body := strings.NewReader(`{"policy_id":"pol-1","report_type":"Gap Report"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/reports", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rep-1", got.ID)
}

func TestAPI_ListGaps(t *testing.T) {
	st := &fakeStore{gaps: []model.Gap{{ID: "gap-1", ControlID: "CC1"}}}
	h := newTestServer(st, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/policies/pol-1/gaps?status=Open", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Gap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "gap-1", got[0].ID)
}

func TestAPI_RateLimit(t *testing.T) {
	s := &apiServer{
		store:   &fakeStore{},
		limiter: rate.NewLimiter(rate.Limit(0), 1),
	}
	h := s.routes()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
