package lm

import (
	"bufio"
	"math"
	"strings"
	"testing"
)

func wordnetFixture() string {
	return `VERSION=1.0
N=3 L=2
I=0 W=!ENTER
I=1 W=A
I=2 W=B
J=0 S=0 E=1 l=0.0
J=1 S=1 E=2 l=-0.6931471805599453
`
}

func TestParseWordNetReadsNodesAndArcs(t *testing.T) {
	w, err := ParseWordNet(bufio.NewReader(strings.NewReader(wordnetFixture())), "test.lat")
	if err != nil {
		t.Fatalf("ParseWordNet: %v", err)
	}
	if w.nodePhone[1] != "A" || w.nodePhone[2] != "B" {
		t.Fatalf("nodePhone = %v", w.nodePhone)
	}
	if w.arcs["A"]["B"] != -0.6931471805599453 {
		t.Fatalf("arcs[A][B] = %v", w.arcs["A"]["B"])
	}
}

func TestWordNetDistributeExponentiatesNaturalLog(t *testing.T) {
	w, err := ParseWordNet(bufio.NewReader(strings.NewReader(wordnetFixture())), "test.lat")
	if err != nil {
		t.Fatalf("ParseWordNet: %v", err)
	}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := w.Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	want := math.Exp(-0.6931471805599453)
	if math.Abs(t_[1][2]-want) > 1e-9 {
		t.Fatalf("t[1][2] = %v, want %v", t_[1][2], want)
	}
}

func TestWordNetDistributeSkipsPhonesWithNoArcs(t *testing.T) {
	w := &WordNet{nodePhone: map[int]string{}, arcs: map[string]map[string]float64{}}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := w.Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if t_[1][2] != 0 {
		t.Fatalf("t[1][2] = %v, want 0 (no arc)", t_[1][2])
	}
}
