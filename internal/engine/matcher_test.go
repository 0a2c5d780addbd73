package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcomply/compliance-cli/internal/model"
)

const samplePolicy = "All employees must use multi-factor authentication. " +
	"Access control lists are reviewed quarterly. " +
	"Backups are stored offsite."

func mustNormalize(t *testing.T, raw string) *Text {
	t.Helper()
	text, err := Normalize(raw)
	require.NoError(t, err)
	return text
}

func TestMatchControl_AllKeywordsHit(t *testing.T) {
	ctrl := model.Control{Keywords: []string{"authentication", "access control"}}
	out := MatchControl(ctrl, mustNormalize(t, samplePolicy))

	assert.Equal(t, 2, out.MatchedCount)
	assert.Equal(t, 2, out.TotalKeywords)
	assert.Equal(t, "All employees must use multi-factor authentication", out.Evidence)
}

func TestMatchControl_PartialHits(t *testing.T) {
	ctrl := model.Control{Keywords: []string{"access control", "encryption", "audit log", "firewall"}}
	out := MatchControl(ctrl, mustNormalize(t, samplePolicy))

	assert.Equal(t, 1, out.MatchedCount)
	assert.Equal(t, 4, out.TotalKeywords)
	assert.Equal(t, "Access control lists are reviewed quarterly", out.Evidence)
}

func TestMatchControl_NoHits(t *testing.T) {
	ctrl := model.Control{Keywords: []string{"encryption", "key rotation"}}
	out := MatchControl(ctrl, mustNormalize(t, samplePolicy))

	assert.Equal(t, 0, out.MatchedCount)
	assert.Equal(t, NoEvidenceMarker, out.Evidence)
}

func TestMatchControl_ZeroKeywords(t *testing.T) {
	out := MatchControl(model.Control{}, mustNormalize(t, samplePolicy))

	assert.Equal(t, 0, out.MatchedCount)
	assert.Equal(t, 0, out.TotalKeywords)
	assert.Equal(t, NoEvidenceMarker, out.Evidence)
}

func TestMatchControl_EvidenceIsFirstMatchingSentence(t *testing.T) {
	text := mustNormalize(t, "Intro text with no hits. Backups run nightly. Backups are tested.")
	ctrl := model.Control{Keywords: []string{"backups"}}

	out := MatchControl(ctrl, text)
	assert.Equal(t, "Backups run nightly", out.Evidence)
}

func TestMatchControl_EvidenceTrimmed(t *testing.T) {
	text := mustNormalize(t, "Something else.   Encryption at rest is mandatory.  ")
	ctrl := model.Control{Keywords: []string{"encryption"}}

	out := MatchControl(ctrl, text)
	assert.Equal(t, "Encryption at rest is mandatory", out.Evidence)
}

// A keyword phrase spanning a sentence boundary matches in the whole text
// but in no single sentence, so evidence falls back to the marker.
func TestMatchControl_KeywordSpansSentenceBoundary(t *testing.T) {
	text := mustNormalize(t, "We enforce access. Control reviews happen yearly.")
	ctrl := model.Control{Keywords: []string{"access. control"}}

	out := MatchControl(ctrl, text)
	assert.Equal(t, 1, out.MatchedCount)
	assert.Equal(t, NoEvidenceMarker, out.Evidence)
}

// End-to-end scenario: half the keywords hit, landing in the Partial
// bucket with a Pending decision.
func TestMatchControl_PartialScenario(t *testing.T) {
	text := mustNormalize(t, "Audit logging is enabled for all systems. Access reviews are annual.")
	ctrl := model.Control{Keywords: []string{"audit", "access", "encryption", "retention"}}

	out := MatchControl(ctrl, text)
	confidence := Confidence(out.MatchedCount, out.TotalKeywords)

	assert.Equal(t, 0.5, confidence)
	assert.Equal(t, CoveragePartial, Classify(confidence))
	assert.Equal(t, model.DecisionPending, Decide(confidence))
}
