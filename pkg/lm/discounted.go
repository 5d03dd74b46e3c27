package lm

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// Discounted is the "discounted uni/bigram" source: per spec.md §4.4 item 2,
// built from precomputed unigram and absolute-discounted bigram estimates
// plus each context's held-out discount mass.
//
// The original tool serialises this triple as a Python pickle
// (unigrams, bigrams, discounts); there is no portable Go pickle reader, so
// this package reads and writes the equivalent information as JSON instead
// (see SPEC_FULL.md §6). cmd/lmbuild produces this file from a reference
// MLF using the same absolute-discounting scheme as
// original_source/src/produce_LM.py.
type Discounted struct {
	Unigrams  map[string]float64            `json:"unigrams"`
	Bigrams   map[string]map[string]float64 `json:"bigrams"`
	Discounts map[string]float64            `json:"discounts"`
}

// LoadDiscounted reads a Discounted document from r.
func LoadDiscounted(r io.Reader) (*Discounted, error) {
	var d Discounted
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("lm: decode discounted uni/bigram document: %w", err)
	}
	return &d, nil
}

// Save writes d to w as the JSON document LoadDiscounted expects.
func (d *Discounted) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Distribute implements Source: bigram probability when the (p, q) pair is
// known, otherwise the context's discount mass times the unigram estimate
// for q, otherwise (when p has no bigram entries at all) the plain unigram
// estimate for q. A UnigramsOnly config forces the plain-unigram path
// everywhere.
func (d *Discounted) Distribute(model *hmm.Model, t [][]float64, cfg Config) error {
	start := toSet(cfg.StartPhones)
	names := phoneNames(model)

	for _, p := range model.Phones {
		last := p.States[len(p.States)-1]
		beta := RowRemaining(t[last])

		bi, hasBigrams := d.Bigrams[p.Name]
		for _, q := range model.Phones {
			if start[q.Name] {
				continue
			}
			first := q.States[0]
			uni, ok := d.Unigrams[q.Name]
			if !ok {
				return unknownPhoneError("discounted uni/bigram", q.Name, names)
			}

			var value float64
			switch {
			case !cfg.UnigramsOnly && hasBigrams:
				if pr, ok := bi[q.Name]; ok {
					value = beta * pr
				} else {
					value = beta * d.Discounts[p.Name] * uni
				}
			default:
				value = beta * uni
			}
			t[last][first] = value
		}
	}
	return nil
}
