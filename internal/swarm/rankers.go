package swarm

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// TrailingReturn scores a member by its equity change over the last Window bars
type TrailingReturn struct {
	Window int
}

// Rank implements Ranker
func (r TrailingReturn) Rank(equity types.Series, _ types.Flags) ([]float64, error) {
	if r.Window <= 0 {
		return nil, fmt.Errorf("trailing return window must be positive, got %d", r.Window)
	}
	out := make([]float64, equity.Len())
	for i := range out {
		if i < r.Window {
			out[i] = math.NaN()
			continue
		}
		out[i] = equity.Values[i] - equity.Values[i-r.Window]
	}
	return out, nil
}

// TrailingSharpe scores a member by mean over std of its last Window equity
// changes. A flat window scores 0.
type TrailingSharpe struct {
	Window int
}

// Rank implements Ranker
func (r TrailingSharpe) Rank(equity types.Series, _ types.Flags) ([]float64, error) {
	if r.Window < 2 {
		return nil, fmt.Errorf("trailing sharpe window must be at least 2, got %d", r.Window)
	}
	out := make([]float64, equity.Len())
	for i := range out {
		if i < r.Window {
			out[i] = math.NaN()
			continue
		}
		mean := (equity.Values[i] - equity.Values[i-r.Window]) / float64(r.Window)
		variance := 0.0
		for k := i - r.Window + 1; k <= i; k++ {
			d := equity.Values[k] - equity.Values[k-1] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(r.Window-1))
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = mean / std
	}
	return out, nil
}

// HoldBetweenRebalances evaluates Inner only on rebalance bars and holds that
// score until the next one. Bars before the first rebalance are NaN.
type HoldBetweenRebalances struct {
	Inner Ranker
}

// Rank implements Ranker
func (h HoldBetweenRebalances) Rank(equity types.Series, schedule types.Flags) ([]float64, error) {
	scores, err := h.Inner.Rank(equity, schedule)
	if err != nil {
		return nil, err
	}
	if schedule.Len() != len(scores) {
		return nil, fmt.Errorf("schedule has %d bars, scores have %d", schedule.Len(), len(scores))
	}
	out := make([]float64, len(scores))
	held := math.NaN()
	for i, s := range scores {
		if schedule.At(i) {
			held = s
		}
		out[i] = held
	}
	return out, nil
}

// NewRanker creates a ranker by name
func NewRanker(name string, window int, hold bool) (Ranker, error) {
	var r Ranker
	switch name {
	case "trailing_return", "":
		r = TrailingReturn{Window: window}
	case "trailing_sharpe":
		r = TrailingSharpe{Window: window}
	default:
		return nil, fmt.Errorf("unknown ranker %q", name)
	}
	if hold {
		r = HoldBetweenRebalances{Inner: r}
	}
	return r, nil
}
