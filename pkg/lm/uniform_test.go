package lm

import (
	"math"
	"testing"

	"github.com/zsrkmyn/phondecode/pkg/hmm"
)

func TestUniformDistributeSplitsEvenlyAcrossNonStartPhones(t *testing.T) {
	model := twoPhoneLMModel()
	t_ := [][]float64{
		{0, 0, 0},
		{0, 0.2, 0},
		{0, 0, 0},
	}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := (Uniform{}).Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	// A's eligible successors (excluding only the start phone !ENTER) are
	// A itself and B, so the remaining 0.8 mass splits evenly between
	// them, 0.4 each — including the A->A cell, which this single-state
	// fixture's parser had already populated with a self-loop of 0.2.
	if math.Abs(t_[1][1]-0.4) > 1e-9 {
		t.Fatalf("t[1][1] = %v, want 0.4", t_[1][1])
	}
	if math.Abs(t_[1][2]-0.4) > 1e-9 {
		t.Fatalf("t[1][2] = %v, want 0.4", t_[1][2])
	}
	if t_[1][0] != 0 {
		t.Fatalf("start phone must never receive mass, got %v", t_[1][0])
	}
}

func TestUniformDistributeAllStartPhonesLeavesZero(t *testing.T) {
	model := hmmOnlyStartModel{}.build()
	t_ := [][]float64{{0, 0}, {0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER", "!ENTER2"}}

	if err := (Uniform{}).Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if t_[0][1] != 0 {
		t.Fatalf("t[0][1] = %v, want 0 when every successor is a start phone", t_[0][1])
	}
}

type hmmOnlyStartModel struct{}

func (hmmOnlyStartModel) build() *hmm.Model {
	return &hmm.Model{
		Phones: []*hmm.Phone{
			{Name: "!ENTER", States: []int{0}},
			{Name: "!ENTER2", States: []int{1}},
		},
	}
}
