package lm

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// ARPA is the back-off bigram source (spec.md §4.4 item 3), parsed from a
// standard ARPA \data\ / \1-grams: / \2-grams: / \end\ file of log10
// probabilities and back-offs.
type ARPA struct {
	Unigrams map[string]float64 // phone -> log10 P(phone)
	Backoff  map[string]float64 // phone -> log10 backoff weight
	Bigrams  map[string]map[string]float64

	// Renormalize toggles the back-off re-normalisation that
	// original_source/src/viterbi.py keeps commented out. See spec.md §9's
	// open question and SPEC_FULL.md §11. Off by default, matching the
	// shipped (commented-out) behaviour.
	Renormalize bool

	renormalized bool
}

// ParseARPA reads an ARPA-format bigram LM from r.
func ParseARPA(r *bufio.Reader, filename string) (*ARPA, error) {
	a := &ARPA{
		Unigrams: make(map[string]float64),
		Backoff:  make(map[string]float64),
		Bigrams:  make(map[string]map[string]float64),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	section := ""
	lineNo := 0
	errf := func(format string, args ...any) error {
		return &hmm.ParseError{File: filename, Line: lineNo, Err: fmt.Errorf(format, args...)}
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case line == `\data\`:
			section = "data"
			continue
		case strings.HasPrefix(line, `\1-grams`):
			section = "1grams"
			continue
		case strings.HasPrefix(line, `\2-grams`):
			section = "2grams"
			continue
		case line == `\end\`:
			section = ""
			continue
		}

		switch section {
		case "data":
			// n-gram count lines ("ngram 1=42"): informational only.
		case "1grams":
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, errf("malformed 1-gram entry %q", line)
			}
			logProb, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, errf("malformed 1-gram probability %q", fields[0])
			}
			phone := fields[1]
			a.Unigrams[phone] = logProb
			if len(fields) >= 3 {
				bo, err := strconv.ParseFloat(fields[2], 64)
				if err != nil {
					return nil, errf("malformed 1-gram back-off %q", fields[2])
				}
				a.Backoff[phone] = bo
			} else {
				a.Backoff[phone] = -10000000.0
			}
		case "2grams":
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, errf("malformed 2-gram entry %q: expected 3 fields", line)
			}
			logProb, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, errf("malformed 2-gram probability %q", fields[0])
			}
			p1, p2 := fields[1], fields[2]
			if a.Bigrams[p1] == nil {
				a.Bigrams[p1] = make(map[string]float64)
			}
			a.Bigrams[p1][p2] = logProb
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errf("reading %s: %w", filename, err)
	}
	return a, nil
}

// Distribute implements Source.
func (a *ARPA) Distribute(model *hmm.Model, t [][]float64, cfg Config) error {
	if a.Renormalize && !a.renormalized {
		a.renormalizeBackoff(cfg)
		a.renormalized = true
	}

	start := toSet(cfg.StartPhones)
	names := phoneNames(model)

	for _, p := range model.Phones {
		last := p.States[len(p.States)-1]
		beta := RowRemaining(t[last])

		backoff, ok := a.Backoff[p.Name]
		if !ok {
			return unknownPhoneError("arpa", p.Name, names)
		}

		for _, q := range model.Phones {
			if start[q.Name] {
				continue
			}
			first := q.States[0]

			logProb, hasBigram := a.Bigrams[p.Name][q.Name]
			if !hasBigram {
				uni, ok := a.Unigrams[q.Name]
				if !ok {
					return unknownPhoneError("arpa", q.Name, names)
				}
				logProb = uni + backoff
			}
			t[last][first] = beta * math.Pow(10, logProb)
		}
	}
	return nil
}

// renormalizeBackoff reproduces, in the toggled-on path, the back-off
// renormalisation original_source/src/viterbi.py keeps commented out: any
// bigram weaker than its back-off estimate (or below ThresholdBigrams) is
// replaced by the back-off estimate, then every context's bigram
// distribution is rescaled in log-space to sum to 1.
func (a *ARPA) renormalizeBackoff(cfg Config) {
	for p1, row := range a.Bigrams {
		backoff := a.Backoff[p1]
		sum := 0.0
		for p2, logProb := range row {
			floor := a.Unigrams[p2] + backoff
			if logProb < floor || logProb < cfg.ThresholdBigrams {
				logProb = floor
				row[p2] = logProb
			}
			sum += math.Pow(10, logProb)
		}
		if sum <= 0 {
			continue
		}
		logSum := math.Log10(sum)
		for p2, logProb := range row {
			row[p2] = logProb - logSum
		}
	}
}
