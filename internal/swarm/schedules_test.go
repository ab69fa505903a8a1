package swarm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

func seriesOf(values ...float64) types.Series {
	return types.Series{Index: types.DailyIndex(testStart, len(values)), Values: values}
}

func TestTrailingReturn(t *testing.T) {
	got, err := TrailingReturn{Window: 2}.Rank(seriesOf(0, 1, 3, 2, 5), types.Flags{})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, []float64{3, 1, 2}, got[2:])

	_, err = TrailingReturn{}.Rank(seriesOf(1), types.Flags{})
	assert.Error(t, err)
}

func TestTrailingSharpe(t *testing.T) {
	got, err := TrailingSharpe{Window: 3}.Rank(seriesOf(0, 0, 0, 0, 1, 3, 6), types.Flags{})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 0.0, got[3], "flat window scores zero")
	// changes 0,1,2: mean 1, sample std 1
	assert.InDelta(t, 1.0, got[5], 1e-12)
	// changes 1,2,3: mean 2, sample std 1
	assert.InDelta(t, 2.0, got[6], 1e-12)
}

func TestHoldBetweenRebalances(t *testing.T) {
	eq := seriesOf(0, 1, 2, 3, 4, 5)
	schedule := types.Flags{Index: eq.Index, Values: []uint8{0, 1, 0, 0, 1, 0}}

	got, err := HoldBetweenRebalances{Inner: TrailingReturn{Window: 1}}.Rank(eq, schedule)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, got[1:])
}

func TestNewRanker(t *testing.T) {
	r, err := NewRanker("trailing_sharpe", 10, false)
	require.NoError(t, err)
	assert.Equal(t, TrailingSharpe{Window: 10}, r)

	r, err = NewRanker("", 5, true)
	require.NoError(t, err)
	assert.Equal(t, HoldBetweenRebalances{Inner: TrailingReturn{Window: 5}}, r)

	_, err = NewRanker("momentum", 5, false)
	assert.Error(t, err)
}

func TestEveryNBars(t *testing.T) {
	tbl := NewTable(types.DailyIndex(testStart, 8))

	got, err := EveryNBars{N: 3, Offset: 1}.Schedule(tbl)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 0, 0, 1, 0, 0, 1}, got.Values)

	_, err = EveryNBars{}.Schedule(tbl)
	assert.Error(t, err)
}

// TestWeekly fires on the first bar of each week on or after the weekday
func TestWeekly(t *testing.T) {
	// 2024-01-01 is a Monday
	tbl := NewTable(types.DailyIndex(testStart, 15))

	got, err := Weekly{Weekday: time.Wednesday}.Schedule(tbl)
	require.NoError(t, err)

	var fired []int
	for i := range got.Values {
		if got.At(i) {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{2, 9}, fired)
}

func TestCronSchedule(t *testing.T) {
	tbl := NewTable(types.DailyIndex(testStart, 14))

	got, err := CronSchedule{Spec: "0 0 * * 1"}.Schedule(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Sum())
	assert.True(t, got.At(0))
	assert.True(t, got.At(7))

	// Fires between bars land on the next bar
	noon := CronSchedule{Spec: "0 12 * * 3"}
	got, err = noon.Schedule(tbl)
	require.NoError(t, err)
	assert.True(t, got.At(3))
	assert.True(t, got.At(10))
	assert.Equal(t, 2, got.Sum())

	_, err = CronSchedule{Spec: "every tuesday"}.Schedule(tbl)
	assert.Error(t, err)
}

func TestNewRebalance(t *testing.T) {
	r, err := NewRebalance("bars", 20, "", "")
	require.NoError(t, err)
	assert.Equal(t, EveryNBars{N: 20}, r)

	r, err = NewRebalance("weekly", 0, "", "fri")
	require.NoError(t, err)
	assert.Equal(t, Weekly{Weekday: time.Friday}, r)

	_, err = NewRebalance("cron", 0, "0 0 * *", "")
	assert.Error(t, err)
	_, err = NewRebalance("monthly", 0, "", "")
	assert.Error(t, err)
}

func TestAboveMovingAverage(t *testing.T) {
	got, err := AboveMovingAverage{Period: 3}.Filter(seriesOf(0, 1, 2, 3, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 1, 1, 0, 0}, got.Values)
}

func TestAboveTrailingHigh(t *testing.T) {
	got, err := AboveTrailingHigh{Tolerance: 0.5}.Filter(seriesOf(0, 1, 2, 1.6, 1.4, 3))
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1, 0, 1}, got.Values)

	// A short window forgets the old high
	got, err = AboveTrailingHigh{Window: 2}.Filter(seriesOf(5, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 1, 0}, got.Values)
}

func TestNewGlobalFilter(t *testing.T) {
	f, err := NewGlobalFilter("none", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = NewGlobalFilter("above_ma", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, AboveMovingAverage{Period: 20}, f)

	_, err = NewGlobalFilter("above_ma", 0, 0)
	assert.Error(t, err)
	_, err = NewGlobalFilter("vix", 1, 0)
	assert.Error(t, err)
}
