package lm

import (
	"bytes"
	"math"
	"testing"
)

func TestDiscountedSaveLoadRoundTrip(t *testing.T) {
	d := &Discounted{
		Unigrams:  map[string]float64{"A": 0.6, "B": 0.4},
		Bigrams:   map[string]map[string]float64{"A": {"B": 0.3}},
		Discounts: map[string]float64{"A": 0.5},
	}
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadDiscounted(&buf)
	if err != nil {
		t.Fatalf("LoadDiscounted: %v", err)
	}
	if got.Unigrams["A"] != 0.6 || got.Bigrams["A"]["B"] != 0.3 || got.Discounts["A"] != 0.5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDiscountedDistributeUsesBigramWhenPresent(t *testing.T) {
	d := &Discounted{
		Unigrams: map[string]float64{"A": 0.6, "B": 0.4},
		Bigrams:  map[string]map[string]float64{"A": {"B": 0.3}},
	}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0.2, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := d.Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	want := 0.8 * 0.3
	if math.Abs(t_[1][2]-want) > 1e-9 {
		t.Fatalf("t[1][2] = %v, want %v", t_[1][2], want)
	}
}

func TestDiscountedDistributeFallsBackToDiscountTimesUnigram(t *testing.T) {
	d := &Discounted{
		Unigrams:  map[string]float64{"A": 0.6, "B": 0.4},
		Bigrams:   map[string]map[string]float64{"A": {}},
		Discounts: map[string]float64{"A": 0.5},
	}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := d.Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	want := 1.0 * 0.5 * 0.4
	if math.Abs(t_[1][2]-want) > 1e-9 {
		t.Fatalf("t[1][2] = %v, want %v", t_[1][2], want)
	}
}

func TestDiscountedDistributeUnigramsOnlyIgnoresBigrams(t *testing.T) {
	d := &Discounted{
		Unigrams: map[string]float64{"A": 0.6, "B": 0.4},
		Bigrams:  map[string]map[string]float64{"A": {"B": 0.9}},
	}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}, UnigramsOnly: true}

	if err := d.Distribute(model, t_, cfg); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if math.Abs(t_[1][2]-0.4) > 1e-9 {
		t.Fatalf("t[1][2] = %v, want 0.4", t_[1][2])
	}
}

func TestDiscountedDistributeUnknownPhoneErrors(t *testing.T) {
	d := &Discounted{Unigrams: map[string]float64{"A": 1.0}}
	model := twoPhoneLMModel()
	t_ := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	cfg := Config{StartPhones: []string{"!ENTER"}}

	if err := d.Distribute(model, t_, cfg); err == nil {
		t.Fatalf("expected error for phone B missing from unigrams")
	}
}
