// Package stats provides the reductions used for per-station aggregates.
package stats

import "math"

// Welford holds running statistics using Welford's online algorithm.
type Welford struct {
	Count int     // n - number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from mean
}

// Update adds a new observation.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *Welford) Update(v float64) {
	w.Count++
	delta := v - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := v - w.Mean
	w.M2 += delta * delta2
}

// GetMean returns the current mean, NaN with no observations.
func (w *Welford) GetMean() float64 {
	if w.Count == 0 {
		return math.NaN()
	}
	return w.Mean
}

// GetStdDev returns the sample standard deviation (n-1 divisor).
// Returns NaN if fewer than 2 observations.
func (w *Welford) GetStdDev() float64 {
	if w.Count < 2 {
		return math.NaN()
	}
	return math.Sqrt(w.M2 / float64(w.Count-1))
}

// GetCount returns the number of observations.
func (w *Welford) GetCount() int {
	return w.Count
}

// MeanStd reduces values to their mean and sample standard deviation.
func MeanStd(values []float64) (mean, std float64) {
	var w Welford
	for _, v := range values {
		w.Update(v)
	}
	return w.GetMean(), w.GetStdDev()
}
