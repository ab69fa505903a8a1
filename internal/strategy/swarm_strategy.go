package strategy

import (
	"fmt"

	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Signals holds the entry and exit rules produced for one swarm member
type Signals struct {
	Entry types.Flags
	Exit  types.Flags
}

// Strategy generates entry/exit signals for a parameter set. In bi-directional
// swarms the first parameter is the trade direction (1 or -1).
type Strategy interface {
	// GetName returns the name of the strategy
	GetName() string

	// Grid returns the parameter universe swept for this strategy
	Grid() *optimization.Grid

	// Calculate returns the entry and exit signals for one parameter set
	Calculate(price types.Series, params optimization.ParamSet) (*Signals, error)
}

// directionSign returns +1 or -1 from the first parameter
func directionSign(params optimization.ParamSet) (float64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("missing direction parameter")
	}
	switch params[0] {
	case 1, -1:
		return params[0], nil
	default:
		return 0, fmt.Errorf("first parameter must be direction 1 or -1, got %v", params[0])
	}
}

// New creates a strategy by name over the given grid
func New(name string, grid *optimization.Grid) (Strategy, error) {
	switch name {
	case "sma_crossover", "":
		return NewSMACrossover(grid), nil
	case "breakout":
		return NewBreakout(grid), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
