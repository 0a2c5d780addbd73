package engine

import (
	"iter"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// Text holds one policy document prepared for matching: the original text
// for evidence lookup and a case-folded copy for substring search. Fields
// are immutable after Normalize, so a Text is safe to share across
// concurrent per-framework aggregation.
type Text struct {
	raw   string
	lower string
}

// Normalize prepares raw extracted policy text for matching. It fails with
// ErrEmptyText when the input is empty or whitespace-only.
func Normalize(raw string) (*Text, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, eris.Wrap(ErrEmptyText, "engine: normalize")
	}
	return &Text{
		raw:   raw,
		lower: cases.Fold().String(raw),
	}, nil
}

// Raw returns the original-case text.
func (t *Text) Raw() string { return t.raw }

// Lower returns the case-folded whole text used for substring search.
func (t *Text) Lower() string { return t.lower }

// Contains reports whether the folded text contains the keyword,
// case-insensitively. Matching is plain substring containment, not
// word-boundary aware: "audit" matches "auditorium". That is a deliberate
// recall trade-off of the keyword catalogs, and a known false-positive
// source.
func (t *Text) Contains(keyword string) bool {
	return strings.Contains(t.lower, cases.Fold().String(keyword))
}

// Sentences returns a lazy, restartable sequence of original-case
// sentences, split on runs of '.', '!' and '?'. Empty segments between
// consecutive terminators are skipped. Each range over the sequence
// restarts from the beginning.
func (t *Text) Sentences() iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(t.raw); i++ {
			switch t.raw[i] {
			case '.', '!', '?':
				if i > start {
					if !yield(t.raw[start:i]) {
						return
					}
				}
				start = i + 1
			}
		}
		if start < len(t.raw) {
			yield(t.raw[start:])
		}
	}
}
