package backtest

import (
	"errors"
	"fmt"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

var (
	// ErrMisalignedSeries is returned when per-bar inputs do not share one time index
	ErrMisalignedSeries = errors.New("misaligned series")
	// ErrInvalidDirection is returned when the trade direction is neither +1 nor -1
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrEmptySeries is returned when the price series has no bars
	ErrEmptySeries = errors.New("empty series")
)

// Direction of trades, 1 for longs and -1 for shorts
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

// ParseDirection converts a numeric parameter into a Direction
func ParseDirection(v float64) (Direction, error) {
	switch v {
	case 1:
		return Long, nil
	case -1:
		return Short, nil
	default:
		return 0, fmt.Errorf("%w: %v (expected 1 or -1)", ErrInvalidDirection, v)
	}
}

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// positionState is the simulator state at the start of a bar
type positionState int

const (
	stateFlat positionState = iota
	stateInPosition
)

// Simulate converts a price series and entry/exit signals into a per-bar P&L
// series and an in-position flag series.
//
// The machine performs exactly one transition per bar: a bar that closes a
// position can never open a new one, and the exit bar still earns its P&L.
// pl is exactly 0 on every bar where a position opens.
func Simulate(price types.Series, entry, exit types.Flags, direction Direction) (types.Series, types.Flags, error) {
	if direction != Long && direction != Short {
		return types.Series{}, types.Flags{}, fmt.Errorf("%w: %d", ErrInvalidDirection, int(direction))
	}
	if price.Len() == 0 {
		return types.Series{}, types.Flags{}, ErrEmptySeries
	}
	if err := checkAligned(price, entry, exit); err != nil {
		return types.Series{}, types.Flags{}, err
	}

	pl := types.NewSeries(price.Index)
	inPosition := types.NewFlags(price.Index)
	dir := float64(direction)

	state := stateFlat
	for i := range price.Values {
		switch state {
		case stateFlat:
			if entry.At(i) {
				pl.Values[i] = 0
				inPosition.Values[i] = 1
				state = stateInPosition
			}
		case stateInPosition:
			pl.Values[i] = (price.Values[i] - price.Values[i-1]) * dir
			if exit.At(i) {
				state = stateFlat
			} else {
				inPosition.Values[i] = 1
			}
		}
	}

	return pl, inPosition, nil
}

func checkAligned(price types.Series, entry, exit types.Flags) error {
	if len(price.Values) != len(price.Index) {
		return fmt.Errorf("%w: price has %d values for %d bars", ErrMisalignedSeries, len(price.Values), len(price.Index))
	}
	if !entry.Aligned(price.Index) {
		return fmt.Errorf("%w: entry signal does not match price index", ErrMisalignedSeries)
	}
	if !exit.Aligned(price.Index) {
		return fmt.Errorf("%w: exit signal does not match price index", ErrMisalignedSeries)
	}
	return nil
}
