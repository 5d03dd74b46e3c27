// Package transition assembles the full N×N state transition matrix from
// an acoustic model's intra-phone blocks and one of pkg/lm's inter-phone
// probability sources, then converts it to the log-domain matrix the
// Viterbi decoder consumes.
package transition

import (
	"fmt"
	"math"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
	"github.com/zsrkmyn/phondecode/pkg/lm"
)

// Params carries the settings the assembler and its log transform need,
// beyond what an individual lm.Source requires.
type Params struct {
	// StartPhones and EndPhones generalise the original tool's hardcoded
	// "!ENTER"/"!EXIT" (or "h#") sentinels: StartPhones may never receive
	// incoming inter-phone mass, EndPhones are forced into an absorbing
	// self-loop after distribution.
	StartPhones []string
	EndPhones   []string

	// ThresholdBigrams and UnigramsOnly are forwarded to the lm.Source
	// verbatim; see lm.Config.
	ThresholdBigrams float64
	UnigramsOnly     bool

	// InsertionPenalty (p) and ScaleFactor (s) parameterise the final log
	// transform: L = s*log(T+EpsilonLog) for every entry, minus p for
	// inter-phone entries only. Defaults per spec.md §6: p=2.5, s=1.0.
	InsertionPenalty float64
	ScaleFactor      float64

	// Epsilon bounds how far a distributed row's sum may drift from 1
	// before Assemble fails: a larger drift indicates a buggy lm.Source
	// or acoustic model rather than ordinary floating-point error.
	Epsilon float64

	// EpsilonLog is added to every probability before taking its log, to
	// keep log(0) finite. Default 1e-30.
	EpsilonLog float64
}

// DefaultParams returns the spec's documented defaults.
func DefaultParams() Params {
	return Params{
		InsertionPenalty: 2.5,
		ScaleFactor:      1.0,
		Epsilon:          1e-6,
		EpsilonLog:       1e-30,
	}
}

// Assemble builds the row-stochastic transition matrix T for model, using
// source to distribute each phone's exit mass across its successors.
func Assemble(model *hmm.Model, source lm.Source, p Params) ([][]float64, error) {
	n := model.NumStates
	t := make([][]float64, n)
	for i := range t {
		t[i] = make([]float64, n)
		copy(t[i], model.Transitions0[i])
	}

	cfg := lm.Config{
		StartPhones:      p.StartPhones,
		ThresholdBigrams: p.ThresholdBigrams,
		UnigramsOnly:     p.UnigramsOnly,
	}
	if err := source.Distribute(model, t, cfg); err != nil {
		return nil, fmt.Errorf("transition: distributing inter-phone mass: %w", err)
	}

	end := toSet(p.EndPhones)
	for _, ph := range model.Phones {
		if !end[ph.Name] {
			continue
		}
		last := ph.States[len(ph.States)-1]
		for j := range t[last] {
			t[last][j] = 0
		}
		t[last][last] = 1
	}

	if err := renormalizeRows(t, p.Epsilon); err != nil {
		return nil, err
	}
	return t, nil
}

// renormalizeRows rescales every row to sum to exactly 1. A pre-
// normalisation sum drifting from 1 by more than eps is treated as an
// assertion failure — a sign the supplied lm.Source under- or
// over-distributed a phone's exit mass — and is fatal rather than merely
// logged, per the assembler's error handling contract.
func renormalizeRows(t [][]float64, eps float64) error {
	for i, row := range t {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if sum == 0 {
			continue
		}
		if math.Abs(sum-1) > eps {
			return fmt.Errorf("transition: row %d sum %.6f drifted from 1 by more than epsilon %.6f — model or LM source is likely buggy", i, sum, eps)
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return nil
}

// LogTransform converts the probability matrix t to its log-domain
// counterpart, applying the scale factor to every entry and the insertion
// penalty to inter-phone entries only (intra-phone entries are scaled but
// not penalised).
func LogTransform(t [][]float64, model *hmm.Model, p Params) [][]float64 {
	l := make([][]float64, len(t))
	interPhone := buildInterPhoneMask(model)

	for i, row := range t {
		l[i] = make([]float64, len(row))
		for j, v := range row {
			lv := p.ScaleFactor * math.Log(v+p.EpsilonLog)
			if interPhone[i][j] {
				lv -= p.InsertionPenalty
			}
			l[i][j] = lv
		}
	}
	return l
}

// buildInterPhoneMask reports, for each (i, j), whether i and j belong to
// different phones.
func buildInterPhoneMask(model *hmm.Model) [][]bool {
	n := len(model.StateToPhone)
	mask := make([][]bool, n)
	for i := range mask {
		mask[i] = make([]bool, n)
		for j := range mask[i] {
			mask[i][j] = model.StateToPhone[i] != model.StateToPhone[j]
		}
	}
	return mask
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}
