package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// memStore is an in-memory Store for orchestration tests. Error hooks let
// individual tests fail specific operations.
type memStore struct {
	mu        sync.Mutex
	policies  map[string]*model.Policy
	controls  map[string][]model.Control
	results   []model.ComplianceResult
	mappings  []model.Mapping
	gaps      []model.Gap
	insights  []model.Insight
	reports   []model.Report
	audit     []model.AuditEntry
	failLists bool
	failBulk  bool
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		policies: make(map[string]*model.Policy),
		controls: make(map[string][]model.Control),
	}
}

func (m *memStore) CreatePolicy(ctx context.Context, p *model.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = model.PolicyStatusUploaded
	}
	m.policies[p.ID] = p
	return nil
}

func (m *memStore) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Policy
	for _, p := range m.policies {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) TransitionPolicyStatus(ctx context.Context, id string, from []model.PolicyStatus, to model.PolicyStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if p.Status == st {
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkPolicyAnalyzed(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return eris.Errorf("policy not found: %s", id)
	}
	p.Status = model.PolicyStatusAnalyzed
	p.LastAnalyzedAt = &at
	return nil
}

func (m *memStore) CreateControls(ctx context.Context, controls []model.Control) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range controls {
		m.controls[c.Framework] = append(m.controls[c.Framework], c)
	}
	return len(controls), nil
}

func (m *memStore) ListControls(ctx context.Context, framework string) ([]model.Control, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLists {
		return nil, eris.New("store down")
	}
	return m.controls[framework], nil
}

func (m *memStore) GetControlsByID(ctx context.Context, ids []string) ([]model.Control, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Control
	for _, list := range m.controls {
		for _, c := range list {
			if want[c.ID] || want[c.Code] {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memStore) ListFrameworks(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for fw := range m.controls {
		out = append(out, fw)
	}
	return out, nil
}

func (m *memStore) CreateComplianceResult(ctx context.Context, r *model.ComplianceResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *r)
	return nil
}

func (m *memStore) ListComplianceResults(ctx context.Context, policyID string) ([]model.ComplianceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ComplianceResult
	for _, r := range m.results {
		if r.PolicyID == policyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CreateMappings(ctx context.Context, mappings []model.Mapping) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBulk {
		return 0, eris.New("bulk insert failed")
	}
	m.mappings = append(m.mappings, mappings...)
	return len(mappings), nil
}

func (m *memStore) CreateGaps(ctx context.Context, gaps []model.Gap) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBulk {
		return 0, eris.New("bulk insert failed")
	}
	m.gaps = append(m.gaps, gaps...)
	return len(gaps), nil
}

func (m *memStore) ListGaps(ctx context.Context, filter store.GapFilter) ([]model.Gap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Gap
	for _, g := range m.gaps {
		if filter.PolicyID != "" && g.PolicyID != filter.PolicyID {
			continue
		}
		if filter.Framework != "" && g.Framework != filter.Framework {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *memStore) CreateInsight(ctx context.Context, in *model.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights = append(m.insights, *in)
	return nil
}

func (m *memStore) ListInsights(ctx context.Context, policyID string) ([]model.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Insight
	for _, in := range m.insights {
		if in.PolicyID == policyID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memStore) CreateReport(ctx context.Context, rep *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *rep)
	return nil
}

func (m *memStore) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }
