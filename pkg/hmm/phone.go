// Package hmm parses HTK HMMDEFS acoustic model files into an in-memory
// model of phones, per-phone multi-state HMMs, and per-state diagonal
// Gaussian mixtures, and precomputes the values needed to evaluate those
// mixtures quickly.
package hmm

import "fmt"

// Phone is an emitting-state unit of pronunciation: an identifier plus the
// contiguous, emission-ordered global state indices assigned to it.
//
// HTK's non-emitting init/end states are never represented here — a 5-state
// HTK phone contributes exactly 3 entries to States.
type Phone struct {
	Name   string
	States []int
}

// MixtureComponent is one Gaussian component (π, μ, σ²) of a state's GMM,
// with Σ = diag(σ²).
type MixtureComponent struct {
	Weight   float64
	Mean     []float64
	Variance []float64
}

// State is an HMM emitting state: an ordered list of mixture components.
type State struct {
	Components []MixtureComponent
}

// Model is the immutable, parsed representation of an HTK HMMDEFS file.
//
// NumStates is the total count of emitting states across all phones (N in
// the spec). Transitions0 is an N×N matrix with only the intra-phone blocks
// filled; everything else is zero and left for the transition assembler to
// fill in.
type Model struct {
	Dim          int
	NumStates    int
	Phones       []*Phone
	PhoneByName  map[string]*Phone
	States       []*State
	StateToPhone []string
	Transitions0 [][]float64
}

// PhoneOf returns the name of the phone that owns global state i, or an
// error if i is out of range.
func (m *Model) PhoneOf(i int) (string, error) {
	if i < 0 || i >= len(m.StateToPhone) {
		return "", fmt.Errorf("hmm: state index %d out of range [0,%d)", i, len(m.StateToPhone))
	}
	return m.StateToPhone[i], nil
}

// ParseError is returned by Parse for malformed HMMDEFS records. It carries
// the source file name and the 1-based line number where parsing failed.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
