package indicators

import (
	"errors"
	"math"
)

// RollingStd returns the sample standard deviation of the trailing window,
// NaN until the window is full
func RollingStd(values []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, errors.New("rolling std window must be at least 2")
	}

	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		mean := 0.0
		for _, v := range values[i-window+1 : i+1] {
			mean += v
		}
		mean /= float64(window)
		variance := 0.0
		for _, v := range values[i-window+1 : i+1] {
			variance += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(variance / float64(window-1))
	}
	return out, nil
}

// RollingMax returns the maximum of the window bars before each bar (the
// current bar excluded), NaN until enough history exists
func RollingMax(values []float64, window int) ([]float64, error) {
	return rollingExtreme(values, window, math.Max)
}

// RollingMin returns the minimum of the window bars before each bar (the
// current bar excluded), NaN until enough history exists
func RollingMin(values []float64, window int) ([]float64, error) {
	return rollingExtreme(values, window, math.Min)
}

func rollingExtreme(values []float64, window int, pick func(a, b float64) float64) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("rolling window must be positive")
	}

	out := make([]float64, len(values))
	for i := range values {
		if i < window {
			out[i] = math.NaN()
			continue
		}
		ext := values[i-window]
		for _, v := range values[i-window+1 : i] {
			ext = pick(ext, v)
		}
		out[i] = ext
	}
	return out, nil
}

// Diff returns values[i] - values[i-1], with bar 0 set to NaN
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}
