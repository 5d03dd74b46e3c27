package hmm

import "math"

// PrecomputedState holds the column-oriented arrays the likelihood engine
// evaluates against every frame: W[k] is the component's normalising weight
// π_k·|2πΣ_k|^-½, M[d][k] is its mean, and Inv[d][k] is 1/σ²_{k,d}.
type PrecomputedState struct {
	W   []float64
	M   [][]float64
	Inv [][]float64
}

// Precompute converts every state's raw mixture components into the cached
// form the likelihood engine needs. The result is indexed identically to
// Model.States (global state index).
func Precompute(m *Model) []PrecomputedState {
	out := make([]PrecomputedState, len(m.States))
	for i, st := range m.States {
		out[i] = precomputeState(st, m.Dim)
	}
	return out
}

func precomputeState(st *State, dim int) PrecomputedState {
	k := len(st.Components)
	ps := PrecomputedState{
		W:   make([]float64, k),
		M:   make([][]float64, dim),
		Inv: make([][]float64, dim),
	}
	for d := 0; d < dim; d++ {
		ps.M[d] = make([]float64, k)
		ps.Inv[d] = make([]float64, k)
	}
	for ki, c := range st.Components {
		logNorm := 0.0
		for d := 0; d < dim; d++ {
			sigma2 := c.Variance[d]
			logNorm += math.Log(2 * math.Pi * sigma2)
			ps.M[d][ki] = c.Mean[d]
			ps.Inv[d][ki] = 1.0 / sigma2
		}
		ps.W[ki] = c.Weight * math.Exp(-0.5*logNorm)
	}
	return ps
}
