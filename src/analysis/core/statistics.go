package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMean returns the arithmetic mean, 0 for no data.
func CalculateMean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// -----------------------------------------------------------------------------

// CalculateMax returns the largest value, 0 for no data.
func CalculateMax(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	m := math.Inf(-1)
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	return m
}

// -----------------------------------------------------------------------------

// CountAbove counts values strictly greater than threshold.
func CountAbove(data []float64, threshold float64) int {
	n := 0
	for _, v := range data {
		if v > threshold {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// SafeRatio returns |num/den|, or 0 when den is 0.
func SafeRatio(num, den int64) float64 {
	if den == 0 {
		return 0.0
	}
	return math.Abs(float64(num) / float64(den))
}
