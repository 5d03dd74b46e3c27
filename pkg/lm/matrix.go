package lm

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

// Matrix is the dense bigram-matrix source (spec.md §4.4 item 4): one row
// per source phone, one column per successor phone, in the order phones are
// declared on a leading header line. A cell may be a single value or a
// run-length "value*count" pair (matrix files generated by tools that print
// long runs of identical probabilities).
type Matrix struct {
	Phones []string
	Rows   map[string][]float64 // row[source] -> one probability per Phones column
}

// ParseMatrix reads a matrix bigram file: a header line of whitespace
// separated phone names giving the column order, followed by one row per
// phone of the form "<name> <cell> <cell> ...", where each cell is either a
// bare float or "value*count" meaning count repetitions of value.
func ParseMatrix(r *bufio.Reader, filename string) (*Matrix, error) {
	m := &Matrix{Rows: make(map[string][]float64)}

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
		if m.Phones == nil {
			m.Phones = strings.Fields(line)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errf("malformed matrix row %q", line)
		}
		name := fields[0]
		row, err := expandRunLength(fields[1:])
		if err != nil {
			return nil, errf("phone %q: %w", name, err)
		}
		if len(row) != len(m.Phones) {
			return nil, errf("phone %q: row has %d values, header declares %d phones", name, len(row), len(m.Phones))
		}
		m.Rows[name] = row
	}
	if err := sc.Err(); err != nil {
		return nil, errf("reading %s: %w", filename, err)
	}
	return m, nil
}

// expandRunLength expands a sequence of cells, each either "<float>" or
// "<float>*<count>", into the flat list of values it denotes.
func expandRunLength(cells []string) ([]float64, error) {
	var out []float64
	for _, cell := range cells {
		if star := strings.IndexByte(cell, '*'); star >= 0 {
			value, err := strconv.ParseFloat(cell[:star], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed run-length value %q", cell)
			}
			count, err := strconv.Atoi(cell[star+1:])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("malformed run-length count %q", cell)
			}
			for i := 0; i < count; i++ {
				out = append(out, value)
			}
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed matrix value %q", cell)
		}
		out = append(out, value)
	}
	return out, nil
}

// Distribute implements Source.
func (m *Matrix) Distribute(model *hmm.Model, t [][]float64, cfg Config) error {
	start := toSet(cfg.StartPhones)
	names := phoneNames(model)

	col := make(map[string]int, len(m.Phones))
	for i, name := range m.Phones {
		col[name] = i
	}

	for _, p := range model.Phones {
		last := p.States[len(p.States)-1]
		beta := RowRemaining(t[last])

		row, ok := m.Rows[p.Name]
		if !ok {
			return unknownPhoneError("matrix", p.Name, names)
		}

		for _, q := range model.Phones {
			if start[q.Name] {
				continue
			}
			first := q.States[0]
			j, ok := col[q.Name]
			if !ok {
				return unknownPhoneError("matrix", q.Name, names)
			}
			t[last][first] = beta * row[j]
		}
	}
	return nil
}
