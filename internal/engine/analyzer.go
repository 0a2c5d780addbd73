package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearcomply/compliance-cli/internal/extract"
	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

// InsightConfidence is the fixed confidence attached to derived insights.
const InsightConfidence = 0.95

// AnalysisSummary is what one analysis run created.
type AnalysisSummary struct {
	Results         []model.ComplianceResult `json:"results"`
	MappingsCreated int                      `json:"mappings_created"`
	GapsCreated     int                      `json:"gaps_created"`
}

// Analyzer drives a full analysis run for one policy across the requested
// frameworks: it claims the policy, resolves its text, normalizes once,
// aggregates per framework, persists everything in per-run batches, emits
// insights, and records the audit trail.
type Analyzer struct {
	store     store.Store
	extractor extract.Extractor
	actor     string
}

// NewAnalyzer creates an Analyzer. extractor may be nil when policies are
// always created with inline content.
func NewAnalyzer(st store.Store, extractor extract.Extractor, actor string) *Analyzer {
	return &Analyzer{store: st, extractor: extractor, actor: actor}
}

// Analyze runs the compliance analysis for one policy across the given
// frameworks.
//
// Validation and not-found failures surface before any side effect. The
// transition to processing happens before any text work so concurrent
// callers observe the in-flight run. If no text can be resolved the policy
// moves to failed and the whole call fails with ErrExtraction; no partial
// per-framework results are persisted. A persistence failure after the
// claim leaves the policy in processing: the engine does not roll back or
// retry, callers re-invoke after fixing the underlying condition.
func (a *Analyzer) Analyze(ctx context.Context, policyID string, frameworks []string) (*AnalysisSummary, error) {
	if policyID == "" || len(frameworks) == 0 {
		return nil, eris.Wrap(ErrValidation, "engine: policy_id and frameworks are required")
	}

	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: get policy")
	}
	if policy == nil {
		return nil, eris.Wrapf(ErrNotFound, "engine: policy %s", policyID)
	}

	log := zap.L().With(zap.String("policy_id", policyID), zap.Int("frameworks", len(frameworks)))

	claimed, err := a.store.TransitionPolicyStatus(ctx, policyID, model.AnalyzableStatuses(), model.PolicyStatusProcessing)
	if err != nil {
		return nil, eris.Wrap(err, "engine: claim policy")
	}
	if !claimed {
		return nil, eris.Wrapf(ErrValidation, "engine: policy %s is not in an analyzable state", policyID)
	}

	text, err := a.resolveText(ctx, policy)
	if err != nil {
		return nil, a.failPolicy(ctx, policyID, err)
	}

	start := time.Now()
	outcomes := make([]FrameworkOutcome, len(frameworks))

	g, gCtx := errgroup.WithContext(ctx)
	for i, framework := range frameworks {
		g.Go(func() error {
			controls, listErr := a.store.ListControls(gCtx, framework)
			if listErr != nil {
				return eris.Wrapf(listErr, "engine: list controls for %s", framework)
			}
			fwStart := time.Now()
			outcome := AggregateFramework(policyID, framework, controls, text, time.Now().UTC())
			outcome.Result.Duration = time.Since(fwStart).Milliseconds()
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &AnalysisSummary{}
	var allMappings []model.Mapping
	var allGaps []model.Gap
	for _, outcome := range outcomes {
		if err := a.store.CreateComplianceResult(ctx, &outcome.Result); err != nil {
			return nil, eris.Wrapf(err, "engine: persist result for %s", outcome.Result.Framework)
		}
		summary.Results = append(summary.Results, outcome.Result)
		allMappings = append(allMappings, outcome.Mappings...)
		allGaps = append(allGaps, outcome.Gaps...)
	}

	if summary.MappingsCreated, err = a.store.CreateMappings(ctx, allMappings); err != nil {
		return nil, eris.Wrap(err, "engine: persist mappings")
	}
	if summary.GapsCreated, err = a.store.CreateGaps(ctx, allGaps); err != nil {
		return nil, eris.Wrap(err, "engine: persist gaps")
	}

	if err := a.emitInsights(ctx, policyID, allGaps); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := a.store.MarkPolicyAnalyzed(ctx, policyID, now); err != nil {
		return nil, eris.Wrap(err, "engine: mark analyzed")
	}

	if err := a.store.AppendAudit(ctx, &model.AuditEntry{
		Actor:      a.actor,
		Action:     model.AuditActionAnalysisComplete,
		TargetType: "policy",
		TargetID:   policyID,
		Details:    fmt.Sprintf("Completed analysis across %d frameworks", len(frameworks)),
		CreatedAt:  now,
	}); err != nil {
		return nil, eris.Wrap(err, "engine: append audit")
	}

	log.Info("engine: analysis complete",
		zap.Int("results", len(summary.Results)),
		zap.Int("mappings", summary.MappingsCreated),
		zap.Int("gaps", summary.GapsCreated),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return summary, nil
}

// resolveText prefers the pre-extracted content preview and falls back to
// the extraction collaborator. Extractor failures degrade to empty text:
// the caller decides whether that fails the run.
func (a *Analyzer) resolveText(ctx context.Context, policy *model.Policy) (*Text, error) {
	raw := policy.ContentPreview
	if strings.TrimSpace(raw) == "" && policy.FileURL != "" && a.extractor != nil {
		extracted, err := a.extractor.Extract(ctx, policy)
		if err != nil {
			zap.L().Warn("engine: text extraction failed",
				zap.String("policy_id", policy.ID),
				zap.Error(err),
			)
		} else {
			raw = extracted
		}
	}

	if strings.TrimSpace(raw) == "" {
		return nil, eris.Wrapf(ErrExtraction, "engine: policy %s", policy.ID)
	}
	return Normalize(raw)
}

// failPolicy records the processing -> failed transition and returns the
// original failure. The transition error, if any, is logged and swallowed
// so the caller sees the root cause.
func (a *Analyzer) failPolicy(ctx context.Context, policyID string, cause error) error {
	_, err := a.store.TransitionPolicyStatus(ctx, policyID,
		[]model.PolicyStatus{model.PolicyStatusProcessing}, model.PolicyStatusFailed)
	if err != nil {
		zap.L().Error("engine: failed to mark policy failed",
			zap.String("policy_id", policyID),
			zap.Error(err),
		)
	}
	return cause
}

// emitInsights derives summary insights from the gap batch. A run with one
// or more Critical gaps produces exactly one gap_priority insight naming
// the count, never one insight per gap.
func (a *Analyzer) emitInsights(ctx context.Context, policyID string, gaps []model.Gap) error {
	critical := 0
	for _, g := range gaps {
		if g.Severity == model.SeverityCritical {
			critical++
		}
	}
	if critical == 0 {
		return nil
	}

	in := &model.Insight{
		PolicyID:    policyID,
		Type:        model.InsightGapPriority,
		Title:       fmt.Sprintf("%d Critical Gaps Require Immediate Attention", critical),
		Description: fmt.Sprintf("Analysis identified %d critical compliance gaps that should be addressed urgently.", critical),
		Priority:    model.SeverityCritical,
		Confidence:  InsightConfidence,
		Status:      "New",
	}
	if err := a.store.CreateInsight(ctx, in); err != nil {
		return eris.Wrap(err, "engine: persist insight")
	}
	return nil
}
