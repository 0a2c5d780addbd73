// Package engine implements the policy-to-control compliance scoring
// pipeline: text normalization, keyword matching, confidence
// classification, per-framework aggregation, analysis orchestration,
// what-if simulation, and report compilation.
package engine

import "github.com/rotisserie/eris"

// Error taxonomy. Validation and not-found errors surface immediately with
// no side effects; extraction errors cause exactly one status mutation
// (processing -> failed) before surfacing. Persistence errors from the
// store are wrapped and passed through opaquely.
var (
	// ErrNotFound indicates a referenced policy or control does not exist.
	ErrNotFound = eris.New("not found")

	// ErrValidation indicates an empty or missing required input.
	ErrValidation = eris.New("invalid request")

	// ErrExtraction indicates the policy yielded no usable text.
	ErrExtraction = eris.New("could not extract text from policy")

	// ErrEmptyText indicates the normalizer received empty or
	// whitespace-only input. The orchestrator treats this as a
	// policy-level failure, not a per-framework one.
	ErrEmptyText = eris.New("policy text is empty")
)
