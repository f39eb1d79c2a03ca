package stats

import (
	"math"
	"testing"
)

func TestMeanStd(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		mean    float64
		std     float64
		stdNaN  bool
		meanNaN bool
	}{
		{name: "three snapshots", values: []float64{5, 7, 9}, mean: 7, std: 2},
		{name: "constant", values: []float64{4, 4, 4, 4}, mean: 4, std: 0},
		{name: "pair", values: []float64{0, 10}, mean: 5, std: math.Sqrt(50)},
		{name: "single snapshot", values: []float64{3}, mean: 3, stdNaN: true},
		{name: "empty", values: nil, meanNaN: true, stdNaN: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mean, std := MeanStd(tc.values)
			if tc.meanNaN {
				if !math.IsNaN(mean) {
					t.Errorf("mean = %v, want NaN", mean)
				}
			} else if math.Abs(mean-tc.mean) > 1e-12 {
				t.Errorf("mean = %v, want %v", mean, tc.mean)
			}
			if tc.stdNaN {
				if !math.IsNaN(std) {
					t.Errorf("std = %v, want NaN", std)
				}
			} else if math.Abs(std-tc.std) > 1e-12 {
				t.Errorf("std = %v, want %v", std, tc.std)
			}
		})
	}
}

func TestWelfordCount(t *testing.T) {
	var w Welford
	for _, v := range []float64{1, 2, 3} {
		w.Update(v)
	}
	if w.GetCount() != 3 {
		t.Errorf("count = %d, want 3", w.GetCount())
	}
}

func TestModeTieBreak(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"clear winner", []float64{60.17, 60.18, 60.18}, 60.18},
		{"tie picks smallest", []float64{60.19, 60.17, 60.19, 60.17}, 60.17},
		{"tie order reversed", []float64{60.17, 60.19, 60.17, 60.19}, 60.17},
		{"single", []float64{24.9}, 24.9},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Mode(tc.values)
			if !ok {
				t.Fatal("expected a mode")
			}
			if got != tc.expected {
				t.Errorf("Mode(%v) = %v, want %v", tc.values, got, tc.expected)
			}
		})
	}
}

func TestModeBool(t *testing.T) {
	if got, _ := ModeBool([]bool{true, false, true}); !got {
		t.Error("expected true as majority")
	}
	if got, _ := ModeBool([]bool{true, false}); got {
		t.Error("tie should resolve to false")
	}
	if got, _ := ModeBool([]bool{false, true}); got {
		t.Error("tie should resolve to false regardless of order")
	}
	if _, ok := ModeBool(nil); ok {
		t.Error("empty input has no mode")
	}
}

func TestModeStrings(t *testing.T) {
	got, _ := Mode([]string{"Porthania", "Kaivopuisto", "Porthania", "Kaivopuisto"})
	if got != "Kaivopuisto" {
		t.Errorf("Mode = %q, want Kaivopuisto", got)
	}
}
