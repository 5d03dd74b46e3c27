package diagnostics

import "testing"

func TestSuggestPhoneFindsCloseMatch(t *testing.T) {
	known := []string{"AA", "AE", "SIL", "!ENTER", "!EXIT"}
	got, ok := SuggestPhone("!ENTR", known, DefaultMinSimilarity)
	if !ok {
		t.Fatalf("SuggestPhone(!ENTR) found no match, want !ENTER")
	}
	if got != "!ENTER" {
		t.Fatalf("SuggestPhone(!ENTR) = %q, want !ENTER", got)
	}
}

func TestSuggestPhoneRejectsUnrelatedNames(t *testing.T) {
	known := []string{"AA", "AE", "SIL"}
	if _, ok := SuggestPhone("ZZZZZZZZ", known, DefaultMinSimilarity); ok {
		t.Fatalf("SuggestPhone(ZZZZZZZZ) unexpectedly matched something in %v", known)
	}
}

func TestSuggestPhoneEmptyKnownListNeverMatches(t *testing.T) {
	if _, ok := SuggestPhone("A", nil, DefaultMinSimilarity); ok {
		t.Fatalf("SuggestPhone with no known phones should never match")
	}
}
