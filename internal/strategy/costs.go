package strategy

import "github.com/ducminhle1904/swarm-backtester/pkg/types"

// CostModel produces a per-bar round-trip transaction cost series
type CostModel interface {
	Costs(price types.Series) types.Series
}

// FixedCosts charges the same cost, in price points, on every bar
type FixedCosts struct {
	PerTrade float64
}

// Costs returns a constant cost series
func (c FixedCosts) Costs(price types.Series) types.Series {
	out := types.NewSeries(price.Index)
	for i := range out.Values {
		out.Values[i] = c.PerTrade
	}
	return out
}

// PercentCosts charges a fraction of the bar price
type PercentCosts struct {
	Rate float64
}

// Costs returns price * rate per bar
func (c PercentCosts) Costs(price types.Series) types.Series {
	out := types.NewSeries(price.Index)
	for i, p := range price.Values {
		out.Values[i] = p * c.Rate
	}
	return out
}
