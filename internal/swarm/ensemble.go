package swarm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	"github.com/ducminhle1904/swarm-backtester/internal/strategy"
	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// EnsembleResult is the re-simulation of the picked members
type EnsembleResult struct {
	Members []string
	Results map[string]*backtest.MemberResult
	// Equity is the per-bar sum of the members' equity curves
	Equity types.Series
}

// SweepResimulator re-runs picked members through backtest.RunSweep with
// each member's pick mask ANDed into its positions
type SweepResimulator struct {
	Strategy strategy.Strategy
	Price    types.Series
	Costs    strategy.CostModel
	Sizer    strategy.Sizer
	Params   []optimization.ParamSet
	Workers  int
	Logger   zerolog.Logger
}

// Resimulate implements Resimulator
func (r *SweepResimulator) Resimulate(ctx context.Context, mask *PickMask, gate *types.Flags) (*EnsembleResult, error) {
	res, err := backtest.RunSweep(ctx, backtest.SweepConfig{
		Strategy: r.Strategy,
		Price:    r.Price,
		Costs:    r.Costs,
		Sizer:    r.Sizer,
		Params:   r.Params,
		Masks:    mask.FlagsByMember(),
		Filter:   gate,
		Workers:  r.Workers,
		Logger:   r.Logger,
	})
	if err != nil {
		return nil, err
	}
	return NewEnsemble(res), nil
}

// NewEnsemble sums the member equity curves of a sweep result
func NewEnsemble(res *backtest.SweepResult) *EnsembleResult {
	equity := types.NewSeries(res.Index)
	for _, m := range res.Members {
		eq, _ := res.Equity(m)
		for i, v := range eq.Values {
			equity.Values[i] += v
		}
	}
	return &EnsembleResult{Members: res.Members, Results: res.Results, Equity: equity}
}

// Stats returns each member's statistics in member order
func (e *EnsembleResult) Stats() []backtest.Stats {
	out := make([]backtest.Stats, len(e.Members))
	for i, m := range e.Members {
		out[i] = e.Results[m].Result.Stats
	}
	return out
}
