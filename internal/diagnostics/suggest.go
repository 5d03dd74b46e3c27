// Package diagnostics provides small best-effort diagnostics surfaced in
// error messages — currently, phonetic nearest-match suggestions for
// misspelled or mistyped phone names referenced by a language-model file.
package diagnostics

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// SuggestPhone returns the entry in known most similar to name by
// Jaro-Winkler string similarity, and true if its score clears
// minSimilarity. Used to turn "unknown phone %q" parse errors into
// "unknown phone %q — did you mean %q?" ones.
func SuggestPhone(name string, known []string, minSimilarity float64) (string, bool) {
	best := ""
	bestScore := 0.0
	lname := strings.ToLower(name)
	for _, k := range known {
		score := matchr.JaroWinkler(lname, strings.ToLower(k), false)
		if score > bestScore {
			bestScore = score
			best = k
		}
	}
	if bestScore < minSimilarity {
		return "", false
	}
	return best, true
}

// DefaultMinSimilarity is the Jaro-Winkler threshold below which no
// suggestion is offered, to avoid noisy guesses on genuinely unrelated names.
const DefaultMinSimilarity = 0.7
