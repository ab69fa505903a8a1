package strategy

import (
	"math"

	"github.com/ducminhle1904/swarm-backtester/internal/indicators"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Sizer produces a per-bar position size; only entry bars are consulted
type Sizer interface {
	Size(price types.Series) (types.Series, error)
}

// FixedSize returns the same size on every bar
type FixedSize struct {
	Value float64
}

// Size returns a constant series, 1.0 when Value is unset
func (f FixedSize) Size(price types.Series) (types.Series, error) {
	v := f.Value
	if v == 0 {
		v = 1.0
	}
	out := types.NewSeries(price.Index)
	for i := range out.Values {
		out.Values[i] = v
	}
	return out, nil
}

// VolatilitySize scales positions to a target per-bar volatility. Sizes are
// NaN until Window bars of price changes exist, or when volatility is zero.
type VolatilitySize struct {
	Target float64
	Window int
}

// Size returns Target divided by the rolling std of price changes
func (v VolatilitySize) Size(price types.Series) (types.Series, error) {
	out := types.NewSeries(price.Index)
	if price.Len() < 2 {
		for i := range out.Values {
			out.Values[i] = math.NaN()
		}
		return out, nil
	}

	changes := indicators.Diff(price.Values)
	std, err := indicators.RollingStd(changes[1:], v.Window)
	if err != nil {
		return types.Series{}, err
	}

	out.Values[0] = math.NaN()
	for i, s := range std {
		if math.IsNaN(s) || s == 0 {
			out.Values[i+1] = math.NaN()
			continue
		}
		out.Values[i+1] = v.Target / s
	}
	return out, nil
}
