package decode

import (
	"math"
	"testing"
)

func negInf() float64 { return math.Inf(-1) }

func TestDecodeUnanchoredPicksBestSinglePath(t *testing.T) {
	// Two states, no competing path: state 0 always dominates.
	ll := [][]float64{
		{-1, -5},
		{-1, -5},
		{-1, -5},
	}
	l := [][]float64{
		{-0.1, negInf()},
		{negInf(), -0.1},
	}
	res, err := Decode(ll, l, []string{"A", "B"}, Config{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for t_, s := range res.States {
		if s != 0 {
			t.Fatalf("frame %d: state = %d, want 0", t_, s)
		}
	}
}

func TestDecodeBigramModeAnchorsStartAndEnd(t *testing.T) {
	ll := [][]float64{
		{0, -100, -100},
		{-100, 0, -100},
		{-100, -100, 0},
	}
	l := [][]float64{
		{-0.01, -0.01, negInf()},
		{negInf(), -0.01, -0.01},
		{negInf(), negInf(), -0.01},
	}
	cfg := Config{UseBigram: true, Start: []string{"!ENTER"}, End: []string{"!EXIT"}}
	res, err := Decode(ll, l, []string{"!ENTER", "MID", "!EXIT"}, cfg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.States[0] != 0 {
		t.Fatalf("states[0] = %d, want 0 (anchored start)", res.States[0])
	}
	if res.States[len(res.States)-1] != 2 {
		t.Fatalf("states[last] = %d, want 2 (anchored end)", res.States[len(res.States)-1])
	}
}

func TestDecodeUnknownSentinelPhoneErrors(t *testing.T) {
	ll := [][]float64{{0, 0}}
	l := [][]float64{{0, 0}, {0, 0}}
	cfg := Config{UseBigram: true, Start: []string{"!MISSING"}, End: []string{"!EXIT"}}
	if _, err := Decode(ll, l, []string{"A", "!EXIT"}, cfg); err == nil {
		t.Fatalf("expected error for missing sentinel phone")
	}
}

func TestDecodeEmptyLikelihoodErrors(t *testing.T) {
	if _, err := Decode(nil, nil, nil, Config{}); err == nil {
		t.Fatalf("expected error for empty likelihood matrix")
	}
}

// TestDecodeSelfLoopBiasSuppressesOscillation models a bigram that strongly
// favours staying in the current phone (p=0.9) over switching (p=0.1)
// against acoustic evidence that weakly, and repeatedly, tempts a switch to
// the other state. The bigram bias should keep the whole path in the phone
// favoured by the larger net acoustic margin, never oscillating back and
// forth with the noise.
func TestDecodeSelfLoopBiasSuppressesOscillation(t *testing.T) {
	selfLoop := math.Log(0.9)
	cross := math.Log(0.1)
	l := [][]float64{
		{selfLoop, cross},
		{cross, selfLoop},
	}
	// Net margin in favour of state 0 across all four frames is 0.04,
	// comfortably clear of floating-point tie territory.
	ll := [][]float64{
		{0, -0.05},
		{-0.01, 0},
		{0, -0.01},
		{-0.01, 0},
	}
	res, err := Decode(ll, l, []string{"A", "B"}, Config{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, s := range res.States {
		if s != 0 {
			t.Fatalf("frame %d: state = %d, want 0 (self-loop bias should suppress the switch)", i, s)
		}
	}
}

// TestDecodeInsertionPenaltyCollapsesAmbiguousRunToOnePhone models a flat
// transition prior (no self-loop bias) with a heavy penalty on the
// inter-phone edges only, baked directly into l. Against the same weakly
// oscillating acoustic evidence, the switch penalty should again collapse
// the decode to a single phone for the whole utterance.
func TestDecodeInsertionPenaltyCollapsesAmbiguousRunToOnePhone(t *testing.T) {
	const penalty = 2.5
	flat := math.Log(0.5)
	l := [][]float64{
		{flat, flat - penalty},
		{flat - penalty, flat},
	}
	ll := [][]float64{
		{0, -0.05},
		{-0.01, 0},
		{0, -0.01},
		{-0.01, 0},
	}
	res, err := Decode(ll, l, []string{"A", "B"}, Config{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, s := range res.States {
		if s != 0 {
			t.Fatalf("frame %d: state = %d, want 0 (insertion penalty should collapse the run)", i, s)
		}
	}
}

func TestDecodeNeverErrorsOnAllNegInfFrame(t *testing.T) {
	ll := [][]float64{
		{0, 0},
		{negInf(), negInf()},
	}
	l := [][]float64{
		{negInf(), negInf()},
		{negInf(), negInf()},
	}
	res, err := Decode(ll, l, []string{"A", "B"}, Config{})
	if err != nil {
		t.Fatalf("Decode must never error on all -Inf frame, got: %v", err)
	}
	if res == nil {
		t.Fatalf("expected a best-effort result")
	}
}
