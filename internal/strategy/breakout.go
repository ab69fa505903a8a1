package strategy

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/swarm-backtester/internal/indicators"
	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Breakout trades channel breakouts: longs enter above the highest price of
// the entry window and exit below the lowest price of the exit window, shorts
// mirror this. Parameters: (direction, entry window, exit window).
type Breakout struct {
	grid *optimization.Grid
}

// DefaultBreakoutGrid is the sweep used when no grid is configured
func DefaultBreakoutGrid() *optimization.Grid {
	return optimization.NewGrid(
		optimization.ParamArray{Name: "direction", Options: []float64{1, -1}},
		optimization.Param{Name: "entry_window", Default: 20, Min: 10, Max: 40, Step: 10},
		optimization.Param{Name: "exit_window", Default: 10, Min: 5, Max: 15, Step: 5},
	)
}

// NewBreakout creates the strategy; a nil grid uses the default sweep
func NewBreakout(grid *optimization.Grid) *Breakout {
	if grid == nil {
		grid = DefaultBreakoutGrid()
	}
	return &Breakout{grid: grid}
}

// GetName returns the strategy name
func (b *Breakout) GetName() string { return "breakout" }

// Grid returns the parameter universe
func (b *Breakout) Grid() *optimization.Grid { return b.grid }

// Calculate computes breakout signals
func (b *Breakout) Calculate(price types.Series, params optimization.ParamSet) (*Signals, error) {
	dir, err := directionSign(params)
	if err != nil {
		return nil, err
	}
	if len(params) < 3 {
		return nil, fmt.Errorf("breakout expects 3 parameters, got %d", len(params))
	}

	highs, err := indicators.RollingMax(price.Values, params.Int(1))
	if err != nil {
		return nil, err
	}
	lows, err := indicators.RollingMin(price.Values, params.Int(1))
	if err != nil {
		return nil, err
	}
	exitHighs, err := indicators.RollingMax(price.Values, params.Int(2))
	if err != nil {
		return nil, err
	}
	exitLows, err := indicators.RollingMin(price.Values, params.Int(2))
	if err != nil {
		return nil, err
	}

	sig := &Signals{Entry: types.NewFlags(price.Index), Exit: types.NewFlags(price.Index)}
	for i, p := range price.Values {
		if dir > 0 {
			sig.Entry.Values[i] = flag(!math.IsNaN(highs[i]) && p > highs[i])
			sig.Exit.Values[i] = flag(!math.IsNaN(exitLows[i]) && p < exitLows[i])
		} else {
			sig.Entry.Values[i] = flag(!math.IsNaN(lows[i]) && p < lows[i])
			sig.Exit.Values[i] = flag(!math.IsNaN(exitHighs[i]) && p > exitHighs[i])
		}
	}
	return sig, nil
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
