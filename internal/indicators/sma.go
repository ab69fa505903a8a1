package indicators

import (
	"errors"
	"math"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
	}
}

// Calculate returns the SMA at every bar; bars before a full window are NaN
func (s *SMA) Calculate(values []float64) ([]float64, error) {
	if s.period <= 0 {
		return nil, errors.New("sma period must be positive")
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= s.period {
			sum -= values[i-s.period]
		}
		if i < s.period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(s.period)
	}
	return out, nil
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
