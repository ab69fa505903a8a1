package swarm

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/swarm-backtester/internal/indicators"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// AboveMovingAverage allows re-selection while the average swarm equity is
// above its simple moving average. Warm-up bars are false.
type AboveMovingAverage struct {
	Period int
}

// Filter implements GlobalFilter
func (f AboveMovingAverage) Filter(avgEquity types.Series) (types.Flags, error) {
	sma, err := indicators.NewSMA(f.Period).Calculate(avgEquity.Values)
	if err != nil {
		return types.Flags{}, err
	}
	out := types.NewFlags(avgEquity.Index)
	for i, v := range avgEquity.Values {
		if !math.IsNaN(sma[i]) && v > sma[i] {
			out.Values[i] = 1
		}
	}
	return out, nil
}

// AboveTrailingHigh allows re-selection while the average swarm equity is
// within Tolerance of its highest value over the last Window bars (including
// the current bar). Window 0 uses the whole history.
type AboveTrailingHigh struct {
	Window    int
	Tolerance float64
}

// Filter implements GlobalFilter
func (f AboveTrailingHigh) Filter(avgEquity types.Series) (types.Flags, error) {
	if f.Window < 0 {
		return types.Flags{}, fmt.Errorf("trailing high window cannot be negative, got %d", f.Window)
	}
	if f.Tolerance < 0 {
		return types.Flags{}, fmt.Errorf("trailing high tolerance cannot be negative, got %v", f.Tolerance)
	}
	out := types.NewFlags(avgEquity.Index)
	for i, v := range avgEquity.Values {
		start := 0
		if f.Window > 0 && i-f.Window+1 > 0 {
			start = i - f.Window + 1
		}
		high := math.Inf(-1)
		for k := start; k <= i; k++ {
			high = math.Max(high, avgEquity.Values[k])
		}
		if v >= high-f.Tolerance {
			out.Values[i] = 1
		}
	}
	return out, nil
}

// NewGlobalFilter creates a filter by name; "" and "none" return nil
func NewGlobalFilter(name string, period int, tolerance float64) (GlobalFilter, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "above_ma":
		if period <= 0 {
			return nil, fmt.Errorf("moving average period must be positive, got %d", period)
		}
		return AboveMovingAverage{Period: period}, nil
	case "above_trailing_high":
		return AboveTrailingHigh{Window: period, Tolerance: tolerance}, nil
	default:
		return nil, fmt.Errorf("unknown global filter %q", name)
	}
}
