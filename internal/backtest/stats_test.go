package backtest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

func plSeries(values ...float64) types.Series {
	return types.Series{Index: types.DailyIndex(testStart, len(values)), Values: values}
}

func constSeries(pl types.Series, v float64) types.Series {
	s := types.NewSeries(pl.Index)
	for i := range s.Values {
		s.Values[i] = v
	}
	return s
}

// TestAggregate_TwoWinningTrades tests two sequential +5 trades without costs
func TestAggregate_TwoWinningTrades(t *testing.T) {
	pl := plSeries(0, 0, 2, 3, 0, 0, 0, 5, 0, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0)

	res, err := Aggregate(pl, inPos, WithPositionSize(constSeries(pl, 1)))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Count)
	assert.Equal(t, 10.0, res.Stats.NetProfit)
	assert.Equal(t, 1.0, res.Stats.WinRate)
	assert.Equal(t, 5.0, res.Stats.Avg)
	assert.Equal(t, 0.0, res.Stats.Std)
	assert.Equal(t, 0.0, res.Stats.MaxDD)
	assert.Equal(t, 0.0, res.Stats.CostsSum)
	// (2 + 1) / 2 - 1
	assert.Equal(t, 0.5, res.Stats.AvgBarsInTrade)
	assert.Equal(t, []float64{0, 0, 2, 5, 5, 5, 5, 10, 10, 10}, res.Equity.Values)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, Trade{EntryIndex: 1, ExitIndex: 4, Profit: 5, BarsHeld: 2, MAE: 0}, res.Trades[0])
	assert.Equal(t, Trade{EntryIndex: 6, ExitIndex: 8, Profit: 5, BarsHeld: 1, MAE: 0}, res.Trades[1])
}

// TestAggregate_CostsChargedAtEntry tests a losing trade with round-trip costs and size 2
func TestAggregate_CostsChargedAtEntry(t *testing.T) {
	pl := plSeries(0, 0, -1, -0.5, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 0, 0)
	costs := plSeries(0, 0.01, 0.5, 0.5, 0.5)

	res, err := Aggregate(pl, inPos, WithPositionSize(constSeries(pl, 2)), WithCosts(costs))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.InDelta(t, -0.04, res.Stats.CostsSum, 1e-12)
	assert.InDelta(t, -3.04, res.Trades[0].Profit, 1e-12)
	assert.InDelta(t, -3.04, res.Stats.NetProfit, 1e-12)
	assert.Equal(t, 0.0, res.Stats.WinRate)
	// MAE is tracked on in-position bars only, the exit increment is not included
	assert.InDelta(t, -2.04, res.Stats.AvgMAE, 1e-12)
	assert.InDelta(t, -3.04, res.Stats.MaxDD, 1e-12)
	assert.InDelta(t, -0.04, res.Equity.Values[1], 1e-12)
}

// TestAggregate_NegativeCostMagnitude tests that cost sign is ignored
func TestAggregate_NegativeCostMagnitude(t *testing.T) {
	pl := plSeries(0, 0, 1, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 0)
	costs := plSeries(0, -0.25, 0, 0)

	res, err := Aggregate(pl, inPos, WithCosts(costs))
	require.NoError(t, err)
	assert.InDelta(t, -0.5, res.Stats.CostsSum, 1e-12)
	assert.InDelta(t, 0.5, res.Stats.NetProfit, 1e-12)
}

// TestAggregate_EmptyTrades tests that no trades yields all-zero stats
func TestAggregate_EmptyTrades(t *testing.T) {
	pl := plSeries(0, 0, 0)
	inPos := flagsOn(pl.Index, 0, 0, 0)

	res, err := Aggregate(pl, inPos)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, res.Stats)
	assert.Empty(t, res.Trades)
	assert.Equal(t, []float64{0, 0, 0}, res.Equity.Values)
}

// TestAggregate_UnterminatedTrade tests that an open trade at series end is not finalized
func TestAggregate_UnterminatedTrade(t *testing.T) {
	pl := plSeries(0, 0, 1, 1)
	inPos := flagsOn(pl.Index, 0, 1, 1, 1)

	res, err := Aggregate(pl, inPos)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Count)
	// equity still reflects the open trade
	assert.Equal(t, []float64{0, 0, 1, 2}, res.Equity.Values)
}

// TestAggregate_NaNPositionSizeSkipsBars tests the undefined sizing passthrough
func TestAggregate_NaNPositionSizeSkipsBars(t *testing.T) {
	pl := plSeries(0, 0, 3, 0, 0, 0, 2, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 0, 0, 1, 1, 0)
	size := plSeries(1, math.NaN(), 1, 1, 1, 2, 1, 1)
	costs := constSeries(pl, 0.1)

	res, err := Aggregate(pl, inPos, WithPositionSize(size), WithCosts(costs))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	// first trade has undefined size: no profit, no cost, flat equity
	assert.Equal(t, 0.0, res.Trades[0].Profit)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, res.Equity.Values[:5])
	// second trade is sized at its own entry bar
	assert.InDelta(t, 2*2-0.4, res.Trades[1].Profit, 1e-12)
	assert.InDelta(t, -0.4, res.Stats.CostsSum, 1e-12)
}

// TestAggregate_NaNPositionSizeHoldsPriorEquity tests that bars of an unsized
// trade carry the previous bar's equity instead of dropping to 0
func TestAggregate_NaNPositionSizeHoldsPriorEquity(t *testing.T) {
	pl := plSeries(0, 0, 3, 0, 0, 2, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 0, 1, 1, 0)
	size := plSeries(1, 1, 1, 1, math.NaN(), 1, 1)

	res, err := Aggregate(pl, inPos, WithPositionSize(size))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 3, 3, 3, 3, 3}, res.Equity.Values)
	assert.Equal(t, 0.0, res.Stats.MaxDD)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, 0.0, res.Trades[1].Profit)
}

// TestAggregate_EntryAtFirstBar tests a position opened on bar 0
func TestAggregate_EntryAtFirstBar(t *testing.T) {
	price := priceSeries(100, 101, 102, 101, 100)
	entry := flagsOn(price.Index, 1, 0, 0, 0, 0)
	exit := flagsOn(price.Index, 0, 0, 0, 1, 0)
	pl, inPos, err := Simulate(price, entry, exit, Long)
	require.NoError(t, err)

	res, err := Aggregate(pl, inPos, WithCosts(constSeries(pl, 0.25)))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 0, res.Trades[0].EntryIndex)
	assert.Equal(t, 3, res.Trades[0].ExitIndex)
	assert.InDelta(t, 1-0.5, res.Trades[0].Profit, 1e-12)
	assert.InDelta(t, -0.5, res.Stats.CostsSum, 1e-12)
	// bar 0 is the fixed baseline
	assert.Equal(t, 0.0, res.Equity.Values[0])
	assert.InDelta(t, 0.5, res.Equity.Values[1], 1e-12)
	assert.Equal(t, 1.0, res.Stats.AvgBarsInTrade)
}

// TestAggregate_Drawdowns tests bar-level and trade-level drawdowns
func TestAggregate_Drawdowns(t *testing.T) {
	// trades: +4, -6, +1 ; trade curve 4, -2, -1 -> trades dd -6
	pl := plSeries(0, 0, 4, 0, 0, -2, -4, 0, 0, 1, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 0, 1, 1, 1, 0, 1, 1, 0)

	res, err := Aggregate(pl, inPos)
	require.NoError(t, err)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, []float64{4, -6, 1}, []float64{res.Trades[0].Profit, res.Trades[1].Profit, res.Trades[2].Profit})
	assert.Equal(t, -6.0, res.Stats.TradesMaxDD)
	assert.Equal(t, -6.0, res.Stats.MaxDD)
	assert.InDelta(t, 2.0/3.0, res.Stats.WinRate, 1e-12)
	assert.InDelta(t, -6.0/3.0, res.Stats.AvgMAE, 1e-12)
	assert.InDelta(t, math.Sqrt((169.0/9+289.0/9+16.0/9)/3), res.Stats.Std, 1e-9)
}

// TestAggregate_Misaligned tests alignment validation
func TestAggregate_Misaligned(t *testing.T) {
	pl := plSeries(0, 1, 2)
	inPos := flagsOn(pl.Index, 0, 1, 0)

	_, err := Aggregate(pl, flagsOn(types.DailyIndex(testStart, 2), 0, 1))
	assert.ErrorIs(t, err, ErrMisalignedSeries)

	_, err = Aggregate(pl, inPos, WithCosts(plSeries(0, 1)))
	assert.ErrorIs(t, err, ErrMisalignedSeries)

	_, err = Aggregate(pl, inPos, WithPositionSize(plSeries(0, 1)))
	assert.ErrorIs(t, err, ErrMisalignedSeries)
}

// TestAggregate_RandomInvariants checks equity continuity, trade count and cost accounting
func TestAggregate_RandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		price, entry, exit := randomInputs(rng, 300)
		pl, inPos, err := Simulate(price, entry, exit, Long)
		require.NoError(t, err)

		size := types.NewSeries(price.Index)
		costs := types.NewSeries(price.Index)
		for i := range size.Values {
			size.Values[i] = 1 + rng.Float64()
			costs.Values[i] = rng.Float64() * 0.1
		}

		res, err := Aggregate(pl, inPos, WithPositionSize(size), WithCosts(costs))
		require.NoError(t, err)

		closes := 0
		expectedCosts := 0.0
		for i := 1; i < inPos.Len(); i++ {
			if inPos.Values[i-1] == 0 && inPos.Values[i] == 0 {
				assert.Equal(t, res.Equity.Values[i-1], res.Equity.Values[i])
			}
			if inPos.Values[i-1] == 1 && inPos.Values[i] == 0 {
				closes++
			}
		}
		for _, tr := range res.Trades {
			expectedCosts += -math.Abs(costs.Values[tr.EntryIndex]) * size.Values[tr.EntryIndex] * 2
		}
		if inPos.Values[inPos.Len()-1] == 1 {
			// the open trade's cost is charged but the trade is not listed
			last := lastEntry(inPos)
			expectedCosts += -math.Abs(costs.Values[last]) * size.Values[last] * 2
		}

		assert.Equal(t, closes, res.Stats.Count)
		assert.InDelta(t, expectedCosts, res.Stats.CostsSum, 1e-9)
		assert.LessOrEqual(t, res.Stats.MaxDD, 0.0)
		assert.LessOrEqual(t, res.Stats.TradesMaxDD, 0.0)
	}
}

func lastEntry(inPos types.Flags) int {
	for i := inPos.Len() - 1; i > 0; i-- {
		if inPos.Values[i] == 1 && inPos.Values[i-1] == 0 {
			return i
		}
	}
	return 0
}

// TestSegmentTrades tests exit-bar trade profits with NaN elsewhere
func TestSegmentTrades(t *testing.T) {
	pl := plSeries(0, 0, 2, 3, 0, 0, 0, 5, -1, 0)
	inPos := flagsOn(pl.Index, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0)

	out, err := SegmentTrades(pl, inPos)
	require.NoError(t, err)

	for i, v := range out.Values {
		switch i {
		case 4:
			assert.Equal(t, 5.0, v)
		case 8:
			assert.Equal(t, 4.0, v)
		default:
			assert.True(t, math.IsNaN(v), "bar %d should be NaN", i)
		}
	}
	// inputs are not modified
	assert.Equal(t, 2.0, pl.Values[2])
}

// TestSegmentTrades_CountsEntryBarOfGatedFlags tests that a masked position
// keeps the pl of its first unmasked bar
func TestSegmentTrades_CountsEntryBarOfGatedFlags(t *testing.T) {
	pl := plSeries(0, 1, 2, 3, 0)
	inPos := flagsOn(pl.Index, 0, 0, 1, 1, 0)

	out, err := SegmentTrades(pl, inPos)
	require.NoError(t, err)

	assert.Equal(t, 5.0, out.Values[4])
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(out.Values[i]), "bar %d should be NaN", i)
	}
}

// TestSegmentTrades_MatchesAggregate tests that segmentation agrees with unsized aggregation
func TestSegmentTrades_MatchesAggregate(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	price, entry, exit := randomInputs(rng, 250)
	pl, inPos, err := Simulate(price, entry, exit, Short)
	require.NoError(t, err)

	seg, err := SegmentTrades(pl, inPos)
	require.NoError(t, err)
	res, err := Aggregate(pl, inPos)
	require.NoError(t, err)

	var segmented []float64
	for _, v := range seg.Values {
		if !math.IsNaN(v) {
			segmented = append(segmented, v)
		}
	}
	require.Len(t, segmented, len(res.Trades))
	for i, tr := range res.Trades {
		assert.InDelta(t, tr.Profit, segmented[i], 1e-9)
	}
}

// TestStats_Map tests the flat stats record
func TestStats_Map(t *testing.T) {
	s := Stats{NetProfit: 1, Count: 3, CostsSum: -0.5}
	m := s.Map()
	assert.Len(t, m, len(StatKeys))
	assert.Equal(t, 3.0, m["count"])
	assert.Equal(t, -0.5, m["costs_sum"])
	for _, k := range StatKeys {
		_, ok := m[k]
		assert.True(t, ok, k)
	}
}
