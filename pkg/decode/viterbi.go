// Package decode implements the Viterbi search over a log-likelihood
// matrix and a log-transition matrix, producing the most likely state path
// through an utterance.
package decode

import (
	"fmt"
	"log/slog"
	"math"
)

// Result is the outcome of a Viterbi decode: one state index per frame plus
// its per-frame log-posterior (ψ at the winning backpointer), for use by
// the MLF writer's verbose form.
type Result struct {
	States     []int
	LogScore   []float64
	FinalScore float64
}

// Config selects between bigram-anchored and unanchored decoding.
type Config struct {
	// UseBigram selects bigram-mode initialisation/termination: decoding
	// is anchored at Start and terminated at End instead of scanning
	// every state in the first/last frame.
	UseBigram bool

	// Start and End name the candidate sentinel phones to anchor to in
	// bigram mode, in preference order (the original tool's
	// "!ENTER"/"h#" duality generalised to an arbitrary candidate list).
	// The state-to-phone map resolves the first candidate present in the
	// model.
	Start []string
	End   []string
}

// resolveState returns the global state index of the first phone in
// candidates that StateToPhone actually contains, preferring a phone's
// last state when last is true (used to resolve End to an exit state) and
// its first state otherwise.
func resolveState(stateToPhone []string, phoneStates map[string][]int, candidates []string, last bool) (int, error) {
	for _, name := range candidates {
		states, ok := phoneStates[name]
		if !ok || len(states) == 0 {
			continue
		}
		if last {
			return states[len(states)-1], nil
		}
		return states[0], nil
	}
	return 0, fmt.Errorf("decode: none of %v present in acoustic model", candidates)
}

// Decode runs the Viterbi algorithm over ll (T x N log-likelihoods) and l
// (N x N log-transitions), returning the best state path.
func Decode(ll [][]float64, l [][]float64, stateToPhone []string, cfg Config) (*Result, error) {
	tFrames := len(ll)
	if tFrames == 0 {
		return nil, fmt.Errorf("decode: empty likelihood matrix")
	}
	n := len(l)

	phoneStates := make(map[string][]int)
	for i, name := range stateToPhone {
		phoneStates[name] = append(phoneStates[name], i)
	}

	psi := make([][]float64, tFrames)
	bp := make([][]int, tFrames)
	for t := range psi {
		psi[t] = make([]float64, n)
		bp[t] = make([]int, n)
	}

	var start int
	if cfg.UseBigram {
		s, err := resolveState(stateToPhone, phoneStates, cfg.Start, false)
		if err != nil {
			return nil, err
		}
		start = s
		for j := range psi[0] {
			psi[0][j] = math.Inf(-1)
		}
		psi[0][start] = ll[0][start]
	} else {
		for j := range psi[0] {
			psi[0][j] = ll[0][j]
		}
	}

	for t := 1; t < tFrames; t++ {
		allNegInf := true
		for j := 0; j < n; j++ {
			best := math.Inf(-1)
			bestK := -1
			for k := 0; k < n; k++ {
				if psi[t-1][k] == math.Inf(-1) || l[k][j] == math.Inf(-1) {
					continue
				}
				cand := psi[t-1][k] + l[k][j]
				if cand > best {
					best = cand
					bestK = k
				}
			}
			if bestK == -1 {
				psi[t][j] = math.Inf(-1)
				bp[t][j] = -1
				continue
			}
			psi[t][j] = best + ll[t][j]
			bp[t][j] = bestK
			allNegInf = false
		}
		if allNegInf {
			slog.Warn("viterbi: every incoming path scored -Inf at this frame", slog.Int("frame", t))
		}
	}

	var final int
	if cfg.UseBigram {
		e, err := resolveState(stateToPhone, phoneStates, cfg.End, true)
		if err != nil {
			return nil, err
		}
		final = e
	} else {
		final = argmax(psi[tFrames-1])
	}

	states := make([]int, tFrames)
	logScore := make([]float64, tFrames)
	states[tFrames-1] = final
	logScore[tFrames-1] = psi[tFrames-1][final]
	for t := tFrames - 1; t > 0; t-- {
		prev := bp[t][states[t]]
		if prev == -1 {
			// No viable predecessor was recorded for this frame; stay put
			// rather than fabricate a transition, matching the "never
			// raises" failure semantics.
			prev = states[t]
		}
		states[t-1] = prev
		logScore[t-1] = psi[t-1][prev]
	}

	return &Result{
		States:     states,
		LogScore:   logScore,
		FinalScore: psi[tFrames-1][final],
	}, nil
}

func argmax(row []float64) int {
	best := 0
	bestV := row[0]
	for i, v := range row {
		if v > bestV {
			bestV = v
			best = i
		}
	}
	return best
}
