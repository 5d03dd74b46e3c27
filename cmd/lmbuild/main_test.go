package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zsrkmyn/phondecode/pkg/lm"
)

func TestStripStateRemovesStateSuffix(t *testing.T) {
	if got := stripState("A[2]"); got != "A" {
		t.Fatalf("stripState(A[2]) = %q, want A", got)
	}
	if got := stripState("A"); got != "A" {
		t.Fatalf("stripState(A) = %q, want A", got)
	}
}

func sampleMLF() string {
	return `#!MLF!#
"utt1".rec
0 300000 A[2] -1.0 -1.0
300000 600000 A[2] -1.0 -1.0
600000 900000 B[2] -1.0 -1.0
.
"utt2".rec
0 300000 A[2] -1.0 -1.0
.
`
}

func TestCountTransitionsResetsContextAtUtteranceBoundaries(t *testing.T) {
	unigrams, bigrams := countTransitions(strings.NewReader(sampleMLF()))

	if unigrams["A"] != 3 || unigrams["B"] != 1 {
		t.Fatalf("unigrams = %v, want A:3 B:1", unigrams)
	}
	if len(bigrams) != 1 {
		t.Fatalf("bigrams = %v, want a single context (A)", bigrams)
	}
	if bigrams["A"]["A"] != 1 || bigrams["A"]["B"] != 1 {
		t.Fatalf("bigrams[A] = %v, want A:1 B:1", bigrams["A"])
	}
	// utt1's trailing B must never pair with utt2's leading A across the
	// "." terminator.
	if _, ok := bigrams["B"]; ok {
		t.Fatalf("bigrams[B] = %v, want no context starting at B", bigrams["B"])
	}
}

func TestDiscountAppliesAbsoluteDiscountAndRenormalises(t *testing.T) {
	unigrams := map[string]float64{"A": 3, "B": 1}
	bigrams := map[string]map[string]float64{"A": {"A": 1, "B": 1}}

	d := discount(unigrams, bigrams)

	if math.Abs(d.Unigrams["A"]-0.75) > 1e-9 || math.Abs(d.Unigrams["B"]-0.25) > 1e-9 {
		t.Fatalf("Unigrams = %v, want A:0.75 B:0.25", d.Unigrams)
	}
	if math.Abs(d.Bigrams["A"]["A"]-0.25) > 1e-9 || math.Abs(d.Bigrams["A"]["B"]-0.25) > 1e-9 {
		t.Fatalf("Bigrams[A] = %v, want A:0.25 B:0.25", d.Bigrams["A"])
	}
	if math.Abs(d.Discounts["A"]-0.5) > 1e-9 {
		t.Fatalf("Discounts[A] = %v, want 0.5", d.Discounts["A"])
	}
}

func TestRunProducesLoadableDiscountedJSON(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "train.mlf")
	if err := os.WriteFile(inPath, []byte(sampleMLF()), 0o644); err != nil {
		t.Fatalf("write mlf: %v", err)
	}
	outPath := filepath.Join(dir, "out.json")

	if code := run([]string{inPath, outPath}); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	d, err := lm.LoadDiscounted(f)
	if err != nil {
		t.Fatalf("LoadDiscounted: %v", err)
	}
	if math.Abs(d.Unigrams["A"]-0.75) > 1e-9 {
		t.Fatalf("Unigrams[A] = %v, want 0.75", d.Unigrams["A"])
	}
}

func TestRunRejectsWrongArgumentCount(t *testing.T) {
	if code := run([]string{"only-one"}); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}
