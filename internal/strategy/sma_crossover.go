package strategy

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/swarm-backtester/internal/indicators"
	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// SMACrossover enters when the fast SMA crosses the slow SMA in the trade
// direction and exits on the opposite cross.
// Parameters: (direction, fast period, slow period).
type SMACrossover struct {
	grid *optimization.Grid
}

// DefaultSMACrossoverGrid is the sweep used when no grid is configured
func DefaultSMACrossoverGrid() *optimization.Grid {
	return optimization.NewGrid(
		optimization.ParamArray{Name: "direction", Options: []float64{1, -1}},
		optimization.Param{Name: "fast", Default: 10, Min: 5, Max: 20, Step: 5},
		optimization.Param{Name: "slow", Default: 50, Min: 30, Max: 90, Step: 20},
	)
}

// NewSMACrossover creates the strategy; a nil grid uses the default sweep
func NewSMACrossover(grid *optimization.Grid) *SMACrossover {
	if grid == nil {
		grid = DefaultSMACrossoverGrid()
	}
	return &SMACrossover{grid: grid}
}

// GetName returns the strategy name
func (s *SMACrossover) GetName() string { return "sma_crossover" }

// Grid returns the parameter universe
func (s *SMACrossover) Grid() *optimization.Grid { return s.grid }

// Calculate computes crossover signals
func (s *SMACrossover) Calculate(price types.Series, params optimization.ParamSet) (*Signals, error) {
	dir, err := directionSign(params)
	if err != nil {
		return nil, err
	}
	if len(params) < 3 {
		return nil, fmt.Errorf("sma_crossover expects 3 parameters, got %d", len(params))
	}
	fastPeriod, slowPeriod := params.Int(1), params.Int(2)
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("fast period %d must be below slow period %d", fastPeriod, slowPeriod)
	}

	fast, err := indicators.NewSMA(fastPeriod).Calculate(price.Values)
	if err != nil {
		return nil, err
	}
	slow, err := indicators.NewSMA(slowPeriod).Calculate(price.Values)
	if err != nil {
		return nil, err
	}

	sig := &Signals{Entry: types.NewFlags(price.Index), Exit: types.NewFlags(price.Index)}
	for i := 1; i < price.Len(); i++ {
		if math.IsNaN(slow[i-1]) {
			continue
		}
		prev := (fast[i-1] - slow[i-1]) * dir
		cur := (fast[i] - slow[i]) * dir
		if prev <= 0 && cur > 0 {
			sig.Entry.Values[i] = 1
		}
		if prev >= 0 && cur < 0 {
			sig.Exit.Values[i] = 1
		}
	}
	return sig, nil
}
