package engine

import (
	"fmt"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// Coverage is the bucket a control falls into based on match confidence.
type Coverage string

const (
	CoverageCovered Coverage = "Covered"
	CoveragePartial Coverage = "Partial"
	CoverageMissing Coverage = "Missing"
)

// Fixed classification thresholds. These are policy constants with a
// single source of truth, not per-framework configuration; callers needing
// different cut points must wrap this package rather than change them.
const (
	// CoveredThreshold is the minimum confidence for Covered.
	CoveredThreshold = 0.7
	// PartialThreshold is the minimum confidence for Partial; below it a
	// control is Missing.
	PartialThreshold = 0.3
	// AcceptThreshold is the minimum confidence at which a mapping is
	// auto-accepted instead of left Pending.
	AcceptThreshold = 0.6
)

// Confidence converts keyword hit counts into a match confidence in
// [0, 1]. Zero total keywords yields zero confidence.
func Confidence(matched, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// Classify maps a confidence to its coverage bucket. The buckets partition
// [0, 1] at PartialThreshold and CoveredThreshold with no overlap.
func Classify(confidence float64) Coverage {
	switch {
	case confidence >= CoveredThreshold:
		return CoverageCovered
	case confidence >= PartialThreshold:
		return CoveragePartial
	default:
		return CoverageMissing
	}
}

// Decide returns the auto-assigned mapping decision for a confidence.
func Decide(confidence float64) model.MappingDecision {
	if confidence >= AcceptThreshold {
		return model.DecisionAccepted
	}
	return model.DecisionPending
}

// Rationale renders the fixed explanation template for a match outcome,
// naming the exact keyword hit ratio.
func Rationale(confidence float64, matched, total int) string {
	switch {
	case confidence >= CoveredThreshold:
		return fmt.Sprintf("Strong match found with %d/%d keywords matched", matched, total)
	case confidence >= PartialThreshold:
		return fmt.Sprintf("Partial match found with %d/%d keywords matched", matched, total)
	default:
		return fmt.Sprintf("Weak or no match found with %d/%d keywords matched", matched, total)
	}
}
