package lm

import "github.com/zsrkmyn/phondecode/pkg/hmm"

// Uniform distributes each phone's exit mass evenly across every successor
// phone other than the configured start phones, including the source
// phone itself (a phone-repeat transition is a legitimate successor, and
// is distinct from the intra-HMM self-loop cell already present in
// Transitions0). It is the default source used when no LM file is given.
type Uniform struct{}

func (Uniform) Distribute(model *hmm.Model, t [][]float64, cfg Config) error {
	start := toSet(cfg.StartPhones)

	for _, p := range model.Phones {
		last := p.States[len(p.States)-1]
		beta := RowRemaining(t[last])

		denom := 0
		for _, q := range model.Phones {
			if !start[q.Name] {
				denom++
			}
		}

		var value float64
		if denom > 0 {
			value = beta / float64(denom)
		}
		for _, q := range model.Phones {
			first := q.States[0]
			if start[q.Name] {
				t[last][first] = 0
				continue
			}
			t[last][first] = value
		}
	}
	return nil
}
