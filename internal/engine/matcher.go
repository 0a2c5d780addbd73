package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// NoEvidenceMarker is the literal evidence value used when no keyword of a
// control matched anywhere in the policy text.
const NoEvidenceMarker = "No clear evidence found"

// MatchOutcome is the result of matching one control against one policy
// text.
type MatchOutcome struct {
	MatchedCount  int
	TotalKeywords int
	Evidence      string
}

// MatchControl counts case-insensitive keyword hits for one control
// against the normalized text and locates an evidence sentence: the first
// original-case sentence containing any of the control's keywords, trimmed
// of surrounding whitespace. A control with zero keywords yields zero
// matches, which the classifier treats as always uncovered rather than as
// an error.
func MatchControl(ctrl model.Control, text *Text) MatchOutcome {
	out := MatchOutcome{TotalKeywords: len(ctrl.Keywords)}

	for _, kw := range ctrl.Keywords {
		if text.Contains(kw) {
			out.MatchedCount++
		}
	}

	if out.MatchedCount == 0 {
		out.Evidence = NoEvidenceMarker
		return out
	}

	folder := cases.Fold()
	folded := make([]string, len(ctrl.Keywords))
	for i, kw := range ctrl.Keywords {
		folded[i] = folder.String(kw)
	}

	for sentence := range text.Sentences() {
		lower := folder.String(sentence)
		for _, kw := range folded {
			if strings.Contains(lower, kw) {
				out.Evidence = strings.TrimSpace(sentence)
				return out
			}
		}
	}

	// Matched in the whole text but no single sentence carried a keyword
	// (e.g. a keyword spanning a sentence boundary).
	out.Evidence = NoEvidenceMarker
	return out
}
