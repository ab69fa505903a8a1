package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMA(t *testing.T) {
	sma := NewSMA(20)

	assert.NotNil(t, sma)
	assert.Equal(t, 20, sma.period)
	assert.Equal(t, "SMA", sma.GetName())
	assert.Equal(t, 20, sma.GetRequiredPeriods())
}

func TestSMA_Calculate_WarmupIsNaN(t *testing.T) {
	sma := NewSMA(3)

	values, err := sma.Calculate([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(values[0]))
	assert.True(t, math.IsNaN(values[1]))
	assert.Equal(t, []float64{2, 3, 4}, values[2:])
}

func TestSMA_Calculate_InvalidPeriod(t *testing.T) {
	_, err := NewSMA(0).Calculate([]float64{1, 2})
	assert.Error(t, err)
}

func TestSMA_Calculate_ConsistentValues(t *testing.T) {
	values, err := NewSMA(5).Calculate(generateFlatValues(10, 100))
	require.NoError(t, err)
	assert.Equal(t, 100.0, values[9])
}

func TestSMA_Calculate_PeriodOne(t *testing.T) {
	in := []float64{3, 1, 4, 1, 5}
	values, err := NewSMA(1).Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, in, values)
}

func TestRollingStd(t *testing.T) {
	out, err := RollingStd([]float64{1, 3, 5, 7}, 2)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, math.Sqrt(2), out[1], 1e-12)
	assert.InDelta(t, math.Sqrt(2), out[3], 1e-12)

	_, err = RollingStd([]float64{1}, 1)
	assert.Error(t, err)
}

func TestRollingMaxMin_ExcludeCurrentBar(t *testing.T) {
	in := []float64{5, 1, 9, 2, 3}

	hi, err := RollingMax(in, 2)
	require.NoError(t, err)
	lo, err := RollingMin(in, 2)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(hi[1]))
	assert.Equal(t, []float64{5, 9, 9}, hi[2:])
	assert.Equal(t, []float64{1, 1, 2}, lo[2:])
}

func TestDiff(t *testing.T) {
	out := Diff([]float64{1, 4, 2})
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, []float64{3, -2}, out[1:])
}

func generateFlatValues(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
