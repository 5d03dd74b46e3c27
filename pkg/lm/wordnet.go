package lm

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// WordNet is the HTK word-network bigram source (spec.md §4.4 item 5):
// an "N=... L=..." header, one "I=<id> W=<phone>" line per node, and one
// "J=<id> S=<src> E=<dst> l=<logprob>" line per arc, with l the natural
// log of the arc's transition probability.
type WordNet struct {
	nodePhone map[int]string
	// arcs[src][dst] is the natural-log probability of the src->dst arc.
	arcs map[string]map[string]float64
}

// ParseWordNet reads an HTK-style word-network lattice.
func ParseWordNet(r *bufio.Reader, filename string) (*WordNet, error) {
	w := &WordNet{
		nodePhone: make(map[int]string),
		arcs:      make(map[string]map[string]float64),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
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
		fields := strings.Fields(line)
		kv := make(map[string]string, len(fields))
		for _, f := range fields {
			eq := strings.IndexByte(f, '=')
			if eq < 0 {
				continue
			}
			kv[f[:eq]] = f[eq+1:]
		}

		switch {
		case fields[0] == "VERSION" || strings.HasPrefix(fields[0], "VERSION="):
			// header metadata, no action needed.
		case kv["N"] != "" || kv["L"] != "":
			// node/link count header; sizes are informational since we grow maps lazily.
		case kv["I"] != "":
			id, err := strconv.Atoi(kv["I"])
			if err != nil {
				return nil, errf("malformed node id %q", kv["I"])
			}
			name, ok := kv["W"]
			if !ok {
				return nil, errf("node %d missing W= phone name", id)
			}
			w.nodePhone[id] = name
		case kv["J"] != "":
			src, err := strconv.Atoi(kv["S"])
			if err != nil {
				return nil, errf("malformed arc source %q", kv["S"])
			}
			dst, err := strconv.Atoi(kv["E"])
			if err != nil {
				return nil, errf("malformed arc dest %q", kv["E"])
			}
			logProb, err := strconv.ParseFloat(kv["l"], 64)
			if err != nil {
				return nil, errf("malformed arc log-prob %q", kv["l"])
			}
			srcName, ok := w.nodePhone[src]
			if !ok {
				return nil, errf("arc references undefined node %d", src)
			}
			dstName, ok := w.nodePhone[dst]
			if !ok {
				return nil, errf("arc references undefined node %d", dst)
			}
			if w.arcs[srcName] == nil {
				w.arcs[srcName] = make(map[string]float64)
			}
			w.arcs[srcName][dstName] = logProb
		default:
			return nil, errf("unrecognised word-network line %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errf("reading %s: %w", filename, err)
	}
	return w, nil
}

// Distribute implements Source. Phone pairs with no arc in the network
// receive no mass; the transition assembler's renormalisation pass accounts
// for any resulting shortfall below the configured epsilon.
func (w *WordNet) Distribute(model *hmm.Model, t [][]float64, cfg Config) error {
	start := toSet(cfg.StartPhones)

	for _, p := range model.Phones {
		last := p.States[len(p.States)-1]
		beta := RowRemaining(t[last])

		arcs, hasArcs := w.arcs[p.Name]
		if !hasArcs {
			continue
		}

		for _, q := range model.Phones {
			if start[q.Name] {
				continue
			}
			logProb, ok := arcs[q.Name]
			if !ok {
				continue
			}
			first := q.States[0]
			t[last][first] = beta * math.Exp(logProb)
		}
	}
	return nil
}
