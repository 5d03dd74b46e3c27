// Package lm provides the five inter-phone transition-probability sources
// the transition assembler can distribute across phone boundaries: uniform,
// ARPA back-off bigram, matrix bigram, wordnet bigram arcs, and discounted
// uni/bigram counts.
package lm

import (
	"fmt"

	"github.com/zsrkmyn/phondecode/internal/diagnostics"
	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// Config carries the settings every Source needs to distribute exit mass
// across phone boundaries.
type Config struct {
	// StartPhones names phones that may never receive incoming inter-phone
	// probability (the generalised "!ENTER" sentinel set).
	StartPhones []string

	// ThresholdBigrams is the minimum log10 probability an ARPA bigram may
	// have before it is treated as unreliable and backed off to the
	// unigram estimate instead (only consulted when Renormalize is set on
	// an *ARPA source).
	ThresholdBigrams float64

	// UnigramsOnly forces the discounted uni/bigram source to ignore any
	// bigram entries and fall back to unigram probabilities everywhere.
	UnigramsOnly bool
}

// Source distributes each phone's exit mass across the first states of its
// successor phones. Distribute must write T[last(p)][first(q)] for every
// phone pair (p, q) it has an opinion about; entries it does not touch are
// left at their current value (usually zero, from Transitions0).
//
// Implementations read the phone's current exit mass via
// RowRemaining(t[last]) — they must call it exactly once per source phone, before writing
// any of that phone's entries, since writing entries changes the row sum.
type Source interface {
	Distribute(model *hmm.Model, t [][]float64, cfg Config) error
}

// RowRemaining returns 1 minus the current sum of row (the phone's exit
// mass β_p per the spec), clamped to zero to protect against floating
// accumulation pushing it very slightly negative.
func RowRemaining(row []float64) float64 {
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	beta := 1 - sum
	if beta < 0 {
		beta = 0
	}
	return beta
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// unknownPhoneError formats an "unknown phone" error, including a
// phonetic nearest-match suggestion drawn from the model's own phone names
// when one clears the similarity threshold.
func unknownPhoneError(file string, name string, known []string) error {
	if suggestion, ok := diagnostics.SuggestPhone(name, known, diagnostics.DefaultMinSimilarity); ok {
		return fmt.Errorf("%s: unknown phone %q — did you mean %q?", file, name, suggestion)
	}
	return fmt.Errorf("%s: unknown phone %q is not in the acoustic model", file, name)
}

func phoneNames(model *hmm.Model) []string {
	names := make([]string, len(model.Phones))
	for i, p := range model.Phones {
		names[i] = p.Name
	}
	return names
}
