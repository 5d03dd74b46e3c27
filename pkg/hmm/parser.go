package hmm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// rawPhone accumulates one phone's states and raw HTK transition block while
// scanning, before the emitting sub-block is sliced out and assigned global
// indices.
type rawPhone struct {
	name       string
	line       int // line of the "~h" record, for error messages
	numStates  int // HTK NUMSTATES, including the two non-emitting states
	states     []*State
	transp     [][]float64 // numStates x numStates, filled from <TRANSP>
	gotNumSt   bool
	gotTransp  bool
}

// Parse reads an HTK HMMDEFS text stream and returns the parsed Model.
// filename is used only to annotate error messages with a useful path.
//
// Malformed records produce a *ParseError naming the offending line; Parse
// never recovers from a malformed record, matching the fatal "malformed
// model file" error kind described for HMM parsing.
func Parse(r io.Reader, filename string) (*Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	p := &parser{sc: sc, filename: filename}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.build()
}

type parser struct {
	sc       *bufio.Scanner
	filename string
	lineNo   int

	phones  []*rawPhone
	current *rawPhone
}

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{File: p.filename, Line: p.lineNo, Err: fmt.Errorf(format, args...)}
}

// nextLine advances the scanner and returns the trimmed next line, or ok=false
// at EOF.
func (p *parser) nextLine() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	p.lineNo++
	return strings.TrimSpace(p.sc.Text()), true
}

func (p *parser) run() error {
	for {
		line, ok := p.nextLine()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "~h":
			if err := p.beginPhone(fields); err != nil {
				return err
			}
		case "<NUMSTATES>":
			if err := p.numStates(fields); err != nil {
				return err
			}
		case "<STATE>":
			if err := p.beginState(fields); err != nil {
				return err
			}
		case "<MIXTURE>":
			if err := p.beginMixture(fields); err != nil {
				return err
			}
		case "<MEAN>":
			if err := p.readVector(func(v []float64) error { return p.setMean(v) }); err != nil {
				return err
			}
		case "<VARIANCE>":
			if err := p.readVector(func(v []float64) error { return p.setVariance(v) }); err != nil {
				return err
			}
		case "<TRANSP>":
			if err := p.readTransp(fields); err != nil {
				return err
			}
		default:
			// Unrecognised record markers (e.g. <GCONST>, ~o, <STREAMINFO>)
			// are ignored — they don't affect decoding.
		}
	}
	if err := p.sc.Err(); err != nil {
		return p.errf("reading %s: %w", p.filename, err)
	}
	if p.current != nil {
		p.flushCurrent()
	}
	return nil
}

func (p *parser) beginPhone(fields []string) error {
	if p.current != nil {
		p.flushCurrent()
	}
	if len(fields) < 2 {
		return p.errf("malformed ~h record: expected a quoted phone name")
	}
	name := strings.Trim(fields[1], `"`)
	p.current = &rawPhone{name: name, line: p.lineNo}
	return nil
}

func (p *parser) flushCurrent() {
	p.phones = append(p.phones, p.current)
	p.current = nil
}

func (p *parser) numStates(fields []string) error {
	if p.current == nil {
		return p.errf("<NUMSTATES> outside of a ~h block")
	}
	if len(fields) < 2 {
		return p.errf("malformed <NUMSTATES> record: missing value")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 3 {
		return p.errf("malformed <NUMSTATES> record: %q is not a valid state count", fields[1])
	}
	p.current.numStates = n
	p.current.gotNumSt = true
	return nil
}

func (p *parser) beginState(fields []string) error {
	if p.current == nil {
		return p.errf("<STATE> outside of a ~h block")
	}
	if len(fields) < 2 {
		return p.errf("malformed <STATE> record: missing index")
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return p.errf("malformed <STATE> record: %q is not a valid index", fields[1])
	}
	p.current.states = append(p.current.states, &State{})
	return nil
}

func (p *parser) curState() (*State, error) {
	if p.current == nil || len(p.current.states) == 0 {
		// A <MIXTURE>/<MEAN>/<VARIANCE> with no preceding <STATE> implicitly
		// opens one emitting state, matching HTK files that omit redundant
		// single-state markers.
		if p.current == nil {
			return nil, p.errf("mixture record outside of a ~h block")
		}
		p.current.states = append(p.current.states, &State{})
	}
	return p.current.states[len(p.current.states)-1], nil
}

func (p *parser) beginMixture(fields []string) error {
	st, err := p.curState()
	if err != nil {
		return err
	}
	weight := 1.0
	if len(fields) >= 3 {
		w, werr := strconv.ParseFloat(fields[2], 64)
		if werr != nil {
			return p.errf("malformed <MIXTURE> record: %q is not a valid weight", fields[2])
		}
		weight = w
	}
	st.Components = append(st.Components, MixtureComponent{Weight: weight})
	return nil
}

func (p *parser) setMean(v []float64) error {
	st, err := p.curState()
	if err != nil {
		return err
	}
	if len(st.Components) == 0 {
		// "A phone without a <MEAN> under a <MIXTURE> marker defaults to a
		// single component with weight 1."
		st.Components = append(st.Components, MixtureComponent{Weight: 1})
	}
	c := &st.Components[len(st.Components)-1]
	c.Mean = v
	return nil
}

func (p *parser) setVariance(v []float64) error {
	st, err := p.curState()
	if err != nil {
		return err
	}
	if len(st.Components) == 0 {
		st.Components = append(st.Components, MixtureComponent{Weight: 1})
	}
	c := &st.Components[len(st.Components)-1]
	c.Variance = v
	return nil
}

func (p *parser) readVector(set func([]float64) error) error {
	line, ok := p.nextLine()
	if !ok {
		return p.errf("expected a vector line, got EOF")
	}
	fields := strings.Fields(line)
	v := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return p.errf("malformed vector component %q", f)
		}
		v[i] = x
	}
	return set(v)
}

func (p *parser) readTransp(fields []string) error {
	if p.current == nil {
		return p.errf("<TRANSP> outside of a ~h block")
	}
	if len(fields) < 2 {
		return p.errf("malformed <TRANSP> record: missing size")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 2 {
		return p.errf("malformed <TRANSP> record: %q is not a valid size", fields[1])
	}
	if p.current.gotNumSt && n != p.current.numStates {
		return p.errf("<TRANSP> size %d does not match <NUMSTATES> %d", n, p.current.numStates)
	}
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		line, ok := p.nextLine()
		if !ok {
			return p.errf("expected %d <TRANSP> rows, got EOF after %d", n, i)
		}
		fs := strings.Fields(line)
		if len(fs) != n {
			return p.errf("<TRANSP> row %d has %d entries, expected %d", i, len(fs), n)
		}
		row := make([]float64, n)
		for j, f := range fs {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return p.errf("malformed <TRANSP> entry %q", f)
			}
			row[j] = x
		}
		rows[i] = row
	}
	p.current.transp = rows
	p.current.gotTransp = true
	p.current.numStates = n
	return nil
}

// build assembles the raw per-phone data into the final Model: it strips the
// non-emitting enter/exit rows and columns from each transition block,
// assigns contiguous global state indices in file order, backfills any
// state left without mixture components, and composes Transitions0.
func (p *parser) build() (*Model, error) {
	if len(p.phones) == 0 {
		return nil, &ParseError{File: p.filename, Line: p.lineNo, Err: fmt.Errorf("no phones found")}
	}

	dim := 0
	for _, rp := range p.phones {
		for _, st := range rp.states {
			for _, c := range st.Components {
				if len(c.Mean) > 0 {
					dim = len(c.Mean)
				}
			}
		}
	}

	m := &Model{
		Dim:         dim,
		PhoneByName: make(map[string]*Phone, len(p.phones)),
	}

	base := 0
	for _, rp := range p.phones {
		if !rp.gotTransp {
			return nil, &ParseError{File: p.filename, Line: rp.line, Err: fmt.Errorf("phone %q has no <TRANSP> block", rp.name)}
		}
		nEmit := len(rp.transp) - 2
		if nEmit != len(rp.states) {
			return nil, &ParseError{File: p.filename, Line: rp.line, Err: fmt.Errorf("phone %q: %d emitting states from <TRANSP> but %d <STATE> blocks", rp.name, nEmit, len(rp.states))}
		}

		ph := &Phone{Name: rp.name}
		for i, st := range rp.states {
			if len(st.Components) == 0 {
				st.Components = append(st.Components, defaultComponent(dim))
			}
			for ci, c := range st.Components {
				if len(c.Mean) == 0 {
					st.Components[ci].Mean = make([]float64, dim)
				}
				if len(c.Variance) == 0 {
					v := make([]float64, dim)
					for d := range v {
						v[d] = 1.0
					}
					st.Components[ci].Variance = v
				}
			}
			idx := base + i
			ph.States = append(ph.States, idx)
			m.States = append(m.States, st)
			m.StateToPhone = append(m.StateToPhone, rp.name)
		}
		m.Phones = append(m.Phones, ph)
		m.PhoneByName[rp.name] = ph
		base += nEmit
	}
	m.NumStates = base

	m.Transitions0 = make([][]float64, m.NumStates)
	for i := range m.Transitions0 {
		m.Transitions0[i] = make([]float64, m.NumStates)
	}

	base = 0
	for _, rp := range p.phones {
		nEmit := len(rp.transp) - 2
		for i := 0; i < nEmit; i++ {
			// Row i+1, columns 1..nEmit of the raw HTK block: drop the
			// non-emitting enter (index 0) and exit (index n-1) row/column.
			src := rp.transp[i+1]
			for j := 0; j < nEmit; j++ {
				m.Transitions0[base+i][base+j] = src[j+1]
			}
		}
		base += nEmit
	}

	return m, nil
}

func defaultComponent(dim int) MixtureComponent {
	v := make([]float64, dim)
	for i := range v {
		v[i] = 1.0
	}
	return MixtureComponent{Weight: 1, Mean: make([]float64, dim), Variance: v}
}
