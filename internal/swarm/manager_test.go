package swarm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/swarm-backtester/internal/errors"
	"github.com/ducminhle1904/swarm-backtester/internal/strategy"
	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// valueRanker scores each bar by the equity value itself, NaN on nanBars
type valueRanker struct {
	nanBars map[int]bool
}

func (r valueRanker) Rank(equity types.Series, _ types.Flags) ([]float64, error) {
	out := make([]float64, equity.Len())
	for i, v := range equity.Values {
		if r.nanBars[i] {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out, nil
}

type fixedFilter struct {
	off func(i int) bool
}

func (f fixedFilter) Filter(avg types.Series) (types.Flags, error) {
	out := types.NewFlags(avg.Index)
	for i := range out.Values {
		if !f.off(i) {
			out.Values[i] = 1
		}
	}
	return out, nil
}

// columnTable builds a table whose columns are produced by fn(member, bar)
func columnTable(t *testing.T, members []string, n int, fn func(j, i int) float64) *Table {
	t.Helper()
	tbl := NewTable(types.DailyIndex(testStart, n))
	for j, m := range members {
		col := make([]float64, n)
		for i := range col {
			col[i] = fn(j, i)
		}
		require.NoError(t, tbl.Add(m, col))
	}
	return tbl
}

func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

// TestPick_FlatFirstRebalance checks that a degenerate first rebalance leaves
// the mask empty until the next usable one, which is then held.
func TestPick_FlatFirstRebalance(t *testing.T) {
	members := []string{"m0", "m1", "m2", "m3", "m4"}
	tbl := columnTable(t, members, 30, func(j, i int) float64 {
		switch {
		case j == 0 && i >= 20:
			return 5
		case j == 4 && i >= 20:
			return 0
		default:
			return float64(j + 1)
		}
	})

	mgr := newTestManager(t, ManagerConfig{
		MembersCount: 2,
		WarmupBars:   0,
		Ranker:       valueRanker{nanBars: map[int]bool{0: true}},
		Rebalance:    EveryNBars{N: 10},
	})
	res, err := mgr.Pick(context.Background(), tbl, nil)
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, res.Schedule.Values)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, res.Mask.Count(i), "bar %d", i)
	}
	for i := 10; i < 20; i++ {
		assert.Equal(t, []string{"m3", "m4"}, res.Mask.PickedAt(i), "bar %d", i)
	}
	for i := 20; i < 30; i++ {
		assert.Equal(t, []string{"m0", "m3"}, res.Mask.PickedAt(i), "bar %d", i)
	}

	// m1 and m2 are never picked and are dropped
	assert.Equal(t, []string{"m0", "m3", "m4"}, res.Mask.Members)
	assert.Nil(t, res.Ensemble)
}

// TestPick_DegenerateRebalanceClearsHeldPicks checks that a rebalance with no
// usable ranks clears the previous pick until the next rebalance
func TestPick_DegenerateRebalanceClearsHeldPicks(t *testing.T) {
	members := []string{"a", "b", "c"}
	tbl := columnTable(t, members, 30, func(j, i int) float64 { return float64(j) })

	mgr := newTestManager(t, ManagerConfig{
		MembersCount: 1,
		Ranker:       valueRanker{nanBars: map[int]bool{10: true}},
		Rebalance:    EveryNBars{N: 10},
	})
	res, err := mgr.Pick(context.Background(), tbl, nil)
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		if i >= 10 && i < 20 {
			assert.Equal(t, 0, res.Mask.Count(i), "bar %d", i)
			continue
		}
		assert.Equal(t, []string{"c"}, res.Mask.PickedAt(i), "bar %d", i)
	}
}

// TestPick_GlobalFilterHoldsPicks checks that filter-false bars never
// re-select and carry the held pick, or stay empty before the first pick
func TestPick_GlobalFilterHoldsPicks(t *testing.T) {
	members := []string{"m0", "m1", "m2"}
	tbl := columnTable(t, members, 25, func(j, i int) float64 {
		switch j {
		case 0:
			if i < 10 {
				return 3
			}
			return 1
		case 1:
			return 2
		default:
			if i < 10 {
				return 1
			}
			return 3
		}
	})

	mgr := newTestManager(t, ManagerConfig{
		MembersCount: 1,
		Ranker:       valueRanker{},
		Rebalance:    EveryNBars{N: 5},
		GlobalFilter: fixedFilter{off: func(i int) bool { return i < 5 || (i >= 10 && i < 15) }},
	})
	res, err := mgr.Pick(context.Background(), tbl, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Filter)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, res.Mask.Count(i), "bar %d", i)
	}
	for i := 5; i < 15; i++ {
		assert.Equal(t, []string{"m0"}, res.Mask.PickedAt(i), "bar %d", i)
	}
	for i := 15; i < 25; i++ {
		assert.Equal(t, []string{"m2"}, res.Mask.PickedAt(i), "bar %d", i)
	}
}

// TestPick_TiesKeepColumnOrder checks the stable sort boundary on equal ranks
func TestPick_TiesKeepColumnOrder(t *testing.T) {
	members := []string{"a", "b", "c", "d"}
	tbl := columnTable(t, members, 5, func(j, i int) float64 { return 1 })

	mgr := newTestManager(t, ManagerConfig{MembersCount: 2, Ranker: valueRanker{}, Rebalance: EveryNBars{N: 5}})
	first, err := mgr.Pick(context.Background(), tbl, nil)
	require.NoError(t, err)
	second, err := mgr.Pick(context.Background(), tbl, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, first.Mask.PickedAt(0))
	assert.Equal(t, first.Mask.Columns, second.Mask.Columns)
}

// TestPick_WarmupBarsStayEmpty checks the default warm-up period
func TestPick_WarmupBarsStayEmpty(t *testing.T) {
	tbl := columnTable(t, []string{"a", "b"}, 150, func(j, i int) float64 { return float64(j) })

	cfg := DefaultManagerConfig()
	cfg.MembersCount = 1
	cfg.Ranker = valueRanker{}
	cfg.Rebalance = EveryNBars{N: 1}
	res, err := newTestManager(t, cfg).Pick(context.Background(), tbl, nil)
	require.NoError(t, err)

	for i := 0; i < DefaultWarmupBars; i++ {
		assert.Equal(t, 0, res.Mask.Count(i), "bar %d", i)
	}
	assert.Equal(t, []string{"b"}, res.Mask.PickedAt(DefaultWarmupBars))
}

// TestPick_ForwardFillInvariant checks on random swarms that every bar holds
// the pick of the latest rebalance bar and never more than MembersCount
func TestPick_ForwardFillInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	members := []string{"a", "b", "c", "d", "e", "f"}

	for trial := 0; trial < 10; trial++ {
		tbl := columnTable(t, members, 120, func(j, i int) float64 { return rng.NormFloat64() })
		mgr := newTestManager(t, ManagerConfig{
			MembersCount: 3,
			WarmupBars:   5,
			Ranker:       TrailingReturn{Window: 3},
			Rebalance:    EveryNBars{N: 7},
		})
		res, err := mgr.Pick(context.Background(), tbl, nil)
		require.NoError(t, err)

		last := -1
		for i := 5; i < tbl.Len(); i++ {
			if res.Schedule.At(i) {
				last = i
			}
			assert.LessOrEqual(t, res.Mask.Count(i), 3)
			if last < 0 {
				assert.Equal(t, 0, res.Mask.Count(i))
				continue
			}
			assert.Equal(t, res.Mask.PickedAt(last), res.Mask.PickedAt(i), "trial %d bar %d", trial, i)
		}
		for _, m := range res.Mask.Members {
			assert.Greater(t, res.Mask.Flags(m).Sum(), 0, m)
		}
	}
}

func TestPick_Validation(t *testing.T) {
	_, err := NewManager(ManagerConfig{})
	require.Error(t, err)
	assert.Equal(t, bterrors.ErrorCategoryConfiguration, bterrors.CategoryOf(err))
	assert.Contains(t, err.Error(), "members count")
	assert.Contains(t, err.Error(), "ranker is required")

	mgr := newTestManager(t, ManagerConfig{MembersCount: 1, Ranker: valueRanker{}, Rebalance: EveryNBars{N: 1}})
	_, err = mgr.Pick(context.Background(), nil, nil)
	assert.Error(t, err)

	bad := &Table{Index: types.DailyIndex(testStart, 3), Members: []string{"a"}, Columns: map[string][]float64{"a": {1, 2}}}
	_, err = mgr.Pick(context.Background(), bad, nil)
	assert.True(t, errors.Is(err, backtest.ErrMisalignedSeries))
}

func TestPercentileRank(t *testing.T) {
	got := PercentileRank([]float64{3, 1, math.NaN(), 3})

	assert.InDelta(t, 2.5/3, got[0], 1e-12)
	assert.InDelta(t, 1.0/3, got[1], 1e-12)
	assert.True(t, math.IsNaN(got[2]))
	assert.InDelta(t, 2.5/3, got[3], 1e-12)

	all := PercentileRank([]float64{math.NaN(), math.NaN()})
	assert.True(t, math.IsNaN(all[0]) && math.IsNaN(all[1]))
}

func TestTopMembers_NaNRanksLowest(t *testing.T) {
	assert.Equal(t, []int{0, 2}, topMembers([]float64{0.5, math.NaN(), 1.0}, 2))
	assert.Equal(t, []int{0, 1, 2}, topMembers([]float64{0.5, math.NaN(), 1.0}, 10))
}

func TestAverageSwarm(t *testing.T) {
	tbl := columnTable(t, []string{"a", "b"}, 4, func(j, i int) float64 {
		if j == 0 {
			return float64(i)
		}
		return float64(3 * i)
	})
	assert.Equal(t, []float64{0, 2, 4, 6}, AverageSwarm(tbl).Values)
}

// TestPick_ResimulatesPickedMembers runs the full sweep, selection and
// re-simulation and checks that positions never leave the mask
func TestPick_ResimulatesPickedMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	index := types.DailyIndex(testStart, 300)
	price := types.NewSeries(index)
	p := 100.0
	for i := range price.Values {
		p += rng.NormFloat64()
		price.Values[i] = p
	}

	strat := strategy.NewSMACrossover(optimization.NewGrid(
		optimization.ParamArray{Name: "direction", Options: []float64{1, -1}},
		optimization.Param{Name: "fast", Default: 3, Min: 3, Max: 7, Step: 2},
		optimization.Param{Name: "slow", Default: 10, Min: 10, Max: 30, Step: 10},
	))
	sweep, err := backtest.RunSweep(context.Background(), backtest.SweepConfig{Strategy: strat, Price: price})
	require.NoError(t, err)
	tbl, err := TableFromSweep(sweep)
	require.NoError(t, err)

	gate := fixedFilter{off: func(i int) bool { return i >= 250 }}
	mgr := newTestManager(t, ManagerConfig{
		MembersCount:  3,
		WarmupBars:    40,
		Ranker:        TrailingReturn{Window: 20},
		Rebalance:     EveryNBars{N: 25},
		GlobalFilter:  gate,
		GatePositions: true,
	})
	res, err := mgr.Pick(context.Background(), tbl, &SweepResimulator{Strategy: strat, Price: price})
	require.NoError(t, err)
	require.NotNil(t, res.Ensemble)

	assert.Equal(t, res.Mask.Members, res.Ensemble.Members)

	sum := make([]float64, len(index))
	for _, m := range res.Ensemble.Members {
		member := res.Ensemble.Results[m]
		mask := res.Mask.Flags(m)
		for i := range index {
			if member.InPosition.At(i) {
				assert.True(t, mask.At(i), "%s bar %d outside mask", m, i)
				assert.Less(t, i, 250, "%s bar %d outside gate", m, i)
			}
			sum[i] += member.Result.Equity.Values[i]
		}
	}
	assert.Equal(t, sum, res.Ensemble.Equity.Values)
	assert.Len(t, res.Ensemble.Stats(), len(res.Ensemble.Members))
}
