package backtest

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Trade is a closed trade segmented from the in-position flags
type Trade struct {
	EntryIndex int
	ExitIndex  int
	Profit     float64
	BarsHeld   int
	MAE        float64
}

// Stats holds the summary statistics of a trade list. It is a value object
// and is never modified after Aggregate returns it.
type Stats struct {
	NetProfit      float64
	Avg            float64
	Std            float64
	Count          int
	WinRate        float64
	MaxDD          float64
	AvgBarsInTrade float64
	AvgMAE         float64
	TradesMaxDD    float64
	CostsSum       float64
}

// Map returns the statistics as a flat key/value record
func (s Stats) Map() map[string]float64 {
	return map[string]float64{
		"netprofit":      s.NetProfit,
		"avg":            s.Avg,
		"std":            s.Std,
		"count":          float64(s.Count),
		"winrate":        s.WinRate,
		"maxdd":          s.MaxDD,
		"avgbarsintrade": s.AvgBarsInTrade,
		"avgmae":         s.AvgMAE,
		"tradesmaxdd":    s.TradesMaxDD,
		"costs_sum":      s.CostsSum,
	}
}

// StatKeys lists the Stats.Map keys in report order
var StatKeys = []string{
	"netprofit", "avg", "std", "count", "winrate",
	"maxdd", "avgbarsintrade", "avgmae", "tradesmaxdd", "costs_sum",
}

// Result is the output of Aggregate
type Result struct {
	Equity types.Series
	Trades []Trade
	Stats  Stats
}

type aggregateOptions struct {
	positionSize *types.Series
	costs        *types.Series
}

// AggregateOption configures optional Aggregate inputs
type AggregateOption func(*aggregateOptions)

// WithPositionSize sets a per-bar position size; only the value at each
// trade's entry bar is used
func WithPositionSize(size types.Series) AggregateOption {
	return func(o *aggregateOptions) { o.positionSize = &size }
}

// WithCosts sets a per-bar round-trip cost; only the value at each trade's
// entry bar is used
func WithCosts(costs types.Series) AggregateOption {
	return func(o *aggregateOptions) { o.costs = &costs }
}

func (o *aggregateOptions) sizeAt(i int) float64 {
	if o.positionSize == nil {
		return 1.0
	}
	return o.positionSize.Values[i]
}

// entryCost is the round-trip cost charged up front at a trade's entry bar
func (o *aggregateOptions) entryCost(i int, size float64) float64 {
	if o.costs == nil {
		return 0
	}
	return -math.Abs(o.costs.Values[i]) * size * 2
}

// Aggregate accumulates the equity curve and the trade list from simulator
// output and computes summary statistics.
//
// Index 0 is the equity baseline and stays at 0. A trade still open at the
// last bar is never finalized and does not appear in the trade list.
func Aggregate(pl types.Series, inPosition types.Flags, opts ...AggregateOption) (*Result, error) {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkAggregateInputs(pl, inPosition, &o); err != nil {
		return nil, err
	}

	n := pl.Len()
	equity := types.NewSeries(pl.Index)
	trades := make([]Trade, 0)

	var (
		profit      float64
		mae         float64
		summae      float64
		barsInTrade float64
		costsSum    float64
		entry       = -1
		entryBase   float64
	)

	if n > 0 && inPosition.At(0) {
		entry = 0
		if size := o.sizeAt(0); !math.IsNaN(size) {
			c := o.entryCost(0, size)
			costsSum += c
			profit += c
			mae = math.Min(mae, profit)
		}
	}

	for i := 1; i < n; i++ {
		if inPosition.At(i) {
			fresh := !inPosition.At(i - 1)
			if fresh {
				entry = i
				entryBase = equity.Values[i-1]
				profit = 0
				mae = 0
			}

			size := o.sizeAt(entry)
			if math.IsNaN(size) {
				equity.Values[i] = equity.Values[i-1]
				continue
			}

			if !fresh {
				profit += pl.Values[i] * size
			}
			if i == entry {
				c := o.entryCost(i, size)
				costsSum += c
				profit += c
			}

			mae = math.Min(mae, profit)
			equity.Values[i] = entryBase + profit
			continue
		}

		if !inPosition.At(i - 1) {
			equity.Values[i] = equity.Values[i-1]
			continue
		}

		// Trade close
		if size := o.sizeAt(entry); !math.IsNaN(size) {
			profit += pl.Values[i] * size
		}
		equity.Values[i] = entryBase + profit
		summae += mae
		barsInTrade += float64((i - 1) - entry)
		trades = append(trades, Trade{
			EntryIndex: entry,
			ExitIndex:  i,
			Profit:     profit,
			BarsHeld:   (i - 1) - entry,
			MAE:        mae,
		})
		profit = 0
	}

	return &Result{
		Equity: equity,
		Trades: trades,
		Stats:  summarize(trades, equity.Values, summae, barsInTrade, costsSum),
	}, nil
}

func checkAggregateInputs(pl types.Series, inPosition types.Flags, o *aggregateOptions) error {
	if len(pl.Values) != len(pl.Index) {
		return fmt.Errorf("%w: pl has %d values for %d bars", ErrMisalignedSeries, len(pl.Values), len(pl.Index))
	}
	if !inPosition.Aligned(pl.Index) {
		return fmt.Errorf("%w: in-position flags do not match pl index", ErrMisalignedSeries)
	}
	if o.positionSize != nil && !o.positionSize.Aligned(pl.Index) {
		return fmt.Errorf("%w: position size does not match pl index", ErrMisalignedSeries)
	}
	if o.costs != nil && !o.costs.Aligned(pl.Index) {
		return fmt.Errorf("%w: costs do not match pl index", ErrMisalignedSeries)
	}
	return nil
}

func summarize(trades []Trade, equity []float64, summae, barsInTrade, costsSum float64) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	count := float64(len(trades))
	profits := make([]float64, len(trades))
	sum := 0.0
	wins := 0
	for i, t := range trades {
		profits[i] = t.Profit
		sum += t.Profit
		if t.Profit > 0 {
			wins++
		}
	}
	avg := sum / count

	variance := 0.0
	for _, p := range profits {
		variance += (p - avg) * (p - avg)
	}
	variance /= count

	return Stats{
		NetProfit: sum,
		Avg:       avg,
		Std:       math.Sqrt(variance),
		Count:     len(trades),
		WinRate:   float64(wins) / count,
		MaxDD:     MaxDrawdown(equity),
		// Kept as (barsintrade / count) - 1, not barsintrade / (count - 1)
		AvgBarsInTrade: barsInTrade/count - 1,
		AvgMAE:         summae / count,
		TradesMaxDD:    MaxDrawdown(cumsum(profits)),
		CostsSum:       costsSum,
	}
}

// MaxDrawdown returns the most negative difference between a value and its
// running maximum; 0 when the curve never falls below a prior peak
func MaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	dd := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if v-peak < dd {
			dd = v - peak
		}
	}
	return dd
}

func cumsum(values []float64) []float64 {
	out := make([]float64, len(values))
	acc := 0.0
	for i, v := range values {
		acc += v
		out[i] = acc
	}
	return out
}

// SegmentTrades returns a series that is NaN everywhere except on trade exit
// bars, where it holds that trade's profit: the sum of pl over every
// in-position bar plus the exit bar. Sizing and costs are not applied.
func SegmentTrades(pl types.Series, inPosition types.Flags) (types.Series, error) {
	if !inPosition.Aligned(pl.Index) || len(pl.Values) != len(pl.Index) {
		return types.Series{}, fmt.Errorf("%w: in-position flags do not match pl index", ErrMisalignedSeries)
	}

	out := types.NewSeries(pl.Index)
	for i := range out.Values {
		out.Values[i] = math.NaN()
	}

	profit := 0.0
	for i := 1; i < pl.Len(); i++ {
		switch {
		case inPosition.At(i) && !inPosition.At(i-1):
			profit = pl.Values[i]
		case inPosition.At(i):
			profit += pl.Values[i]
		case inPosition.At(i - 1):
			profit += pl.Values[i]
			out.Values[i] = profit
			profit = 0
		}
	}
	return out, nil
}
