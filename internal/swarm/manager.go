package swarm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/swarm-backtester/internal/errors"
	"github.com/ducminhle1904/swarm-backtester/internal/monitoring"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// DefaultWarmupBars is the number of leading bars where no selection happens
const DefaultWarmupBars = 100

// Ranker scores one member equity curve per bar. Scores at bar i must only
// use equity up to bar i. NaN marks a bar without a score.
type Ranker interface {
	Rank(equity types.Series, schedule types.Flags) ([]float64, error)
}

// RebalanceScheduler marks the bars where the selection is recomputed
type RebalanceScheduler interface {
	Schedule(swarm *Table) (types.Flags, error)
}

// GlobalFilter marks the bars where re-selection is allowed, computed from
// the average swarm equity
type GlobalFilter interface {
	Filter(avgEquity types.Series) (types.Flags, error)
}

// Resimulator re-runs the picked members with their mask applied
type Resimulator interface {
	Resimulate(ctx context.Context, mask *PickMask, gate *types.Flags) (*EnsembleResult, error)
}

// ManagerConfig configures member selection
type ManagerConfig struct {
	MembersCount int
	WarmupBars   int
	Ranker       Ranker
	Rebalance    RebalanceScheduler
	GlobalFilter GlobalFilter

	// GatePositions also ANDs the global filter into the re-simulated positions
	GatePositions bool

	Logger zerolog.Logger
}

// DefaultManagerConfig returns a config with the default warm-up
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{WarmupBars: DefaultWarmupBars, Logger: zerolog.Nop()}
}

// Validate checks the selection settings
func (c ManagerConfig) Validate() error {
	var problems []string
	if c.MembersCount <= 0 {
		problems = append(problems, fmt.Sprintf("members count must be positive, got %d", c.MembersCount))
	}
	if c.WarmupBars < 0 {
		problems = append(problems, fmt.Sprintf("warm-up bars cannot be negative, got %d", c.WarmupBars))
	}
	if c.Ranker == nil {
		problems = append(problems, "ranker is required")
	}
	if c.Rebalance == nil {
		problems = append(problems, "rebalance schedule is required")
	}
	if len(problems) > 0 {
		return bterrors.NewConfigurationError("swarm_manager", "validate", strings.Join(problems, "; "))
	}
	return nil
}

// PickResult is the output of Manager.Pick
type PickResult struct {
	Mask          *PickMask
	Ranks         *Table
	Schedule      types.Flags
	Filter        *types.Flags
	AverageEquity types.Series
	Ensemble      *EnsembleResult
}

// Manager selects a rotating subset of swarm members
type Manager struct {
	cfg ManagerConfig
	log zerolog.Logger
}

// NewManager validates cfg and creates a manager
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, log: cfg.Logger.With().Str("component", "swarm_manager").Logger()}, nil
}

// Pick ranks the swarm at every rebalance bar, holds the top members until
// the next rebalance and re-simulates the held members when resim is set.
func (m *Manager) Pick(ctx context.Context, swarm *Table, resim Resimulator) (*PickResult, error) {
	if swarm == nil {
		return nil, bterrors.NewValidationError("swarm_manager", "pick", "swarm table is required")
	}
	if err := swarm.validate(); err != nil {
		return nil, bterrors.NewAlignmentError("swarm_manager", "pick", err)
	}

	n := swarm.Len()
	result := &PickResult{AverageEquity: AverageSwarm(swarm)}

	if m.cfg.GlobalFilter != nil {
		f, err := m.cfg.GlobalFilter.Filter(result.AverageEquity)
		if err != nil {
			return nil, bterrors.NewStrategyError("swarm_manager", "global_filter", err)
		}
		if !f.Aligned(swarm.Index) {
			return nil, bterrors.NewAlignmentError("swarm_manager", "global_filter",
				fmt.Errorf("%w: global filter does not match swarm index", backtest.ErrMisalignedSeries))
		}
		result.Filter = &f
	}

	schedule, err := m.cfg.Rebalance.Schedule(swarm)
	if err != nil {
		return nil, bterrors.NewStrategyError("swarm_manager", "rebalance_schedule", err)
	}
	if !schedule.Aligned(swarm.Index) {
		return nil, bterrors.NewAlignmentError("swarm_manager", "rebalance_schedule",
			fmt.Errorf("%w: rebalance schedule does not match swarm index", backtest.ErrMisalignedSeries))
	}
	result.Schedule = schedule

	ranks, err := m.rankMembers(ctx, swarm, schedule)
	if err != nil {
		return nil, err
	}
	result.Ranks = ranks

	mask := newPickMask(swarm.Index, swarm.Members)
	var lastPick []int
	for i := m.cfg.WarmupBars; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if result.Filter != nil && !result.Filter.At(i) {
			if schedule.At(i) {
				monitoring.RecordRebalance("filtered")
			}
			setRow(mask, i, lastPick)
			continue
		}

		if schedule.At(i) {
			row := ranks.Row(i)
			if nanSum(row) == 0 {
				lastPick = nil
				monitoring.RecordRebalance("degenerate")
				m.log.Debug().Int("bar", i).Msg("rebalance skipped: no usable ranks")
				continue
			}
			lastPick = topMembers(row, m.cfg.MembersCount)
			monitoring.RecordRebalance("picked")
			m.log.Debug().Int("bar", i).Time("time", swarm.Index[i]).Int("picked", len(lastPick)).Msg("rebalance")
		}

		setRow(mask, i, lastPick)
	}

	mask.dropNeverPicked()
	result.Mask = mask
	monitoring.UpdatePickedMembers(len(mask.Members))
	m.log.Info().Int("members", len(swarm.Members)).Int("ever_picked", len(mask.Members)).
		Int("rebalances", schedule.Sum()).Msg("selection finished")

	if resim != nil && len(mask.Members) > 0 {
		var gate *types.Flags
		if m.cfg.GatePositions {
			gate = result.Filter
		}
		ens, err := resim.Resimulate(ctx, mask, gate)
		if err != nil {
			return nil, err
		}
		result.Ensemble = ens
		monitoring.UpdateEnsembleNetProfit(ens.Equity.Last())
	}

	return result, nil
}

// rankMembers scores every member then converts scores to cross-member
// percentile ranks per bar
func (m *Manager) rankMembers(ctx context.Context, swarm *Table, schedule types.Flags) (*Table, error) {
	scores := make([][]float64, len(swarm.Members))
	for j, name := range swarm.Members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := m.cfg.Ranker.Rank(swarm.Column(name), schedule)
		if err != nil {
			return nil, bterrors.NewStrategyError("swarm_manager", "rank", err).WithContext("member", name)
		}
		if len(s) != swarm.Len() {
			return nil, bterrors.NewAlignmentError("swarm_manager", "rank",
				fmt.Errorf("%w: ranker returned %d scores for %d bars", backtest.ErrMisalignedSeries, len(s), swarm.Len()))
		}
		scores[j] = s
	}

	ranks := NewTable(swarm.Index)
	cols := make([][]float64, len(swarm.Members))
	for j, name := range swarm.Members {
		cols[j] = make([]float64, swarm.Len())
		ranks.Members = append(ranks.Members, name)
		ranks.Columns[name] = cols[j]
	}

	row := make([]float64, len(swarm.Members))
	for i := 0; i < swarm.Len(); i++ {
		for j := range scores {
			row[j] = scores[j][i]
		}
		pct := PercentileRank(row)
		for j := range cols {
			cols[j][i] = pct[j]
		}
	}
	return ranks, nil
}

// PercentileRank ranks values ascending with ties sharing their average rank,
// divided by the number of non-NaN values. NaN values stay NaN.
func PercentileRank(values []float64) []float64 {
	out := make([]float64, len(values))
	idx := make([]int, 0, len(values))
	for j, v := range values {
		if math.IsNaN(v) {
			out[j] = math.NaN()
			continue
		}
		idx = append(idx, j)
	}
	if len(idx) == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	valid := float64(len(idx))
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && values[idx[end]] == values[idx[start]] {
			end++
		}
		// positions start..end-1 hold ranks start+1..end
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			out[idx[k]] = avg / valid
		}
		start = end
	}
	return out
}

// topMembers returns the column positions of the n best ranks. The sort is
// ascending and stable with NaN lowest, so among equal ranks the later
// columns win.
func topMembers(row []float64, n int) []int {
	order := make([]int, len(row))
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := row[order[a]], row[order[b]]
		if math.IsNaN(va) {
			return !math.IsNaN(vb)
		}
		if math.IsNaN(vb) {
			return false
		}
		return va < vb
	})
	if n > len(order) {
		n = len(order)
	}
	picked := append([]int(nil), order[len(order)-n:]...)
	sort.Ints(picked)
	return picked
}

func setRow(mask *PickMask, i int, picks []int) {
	for _, j := range picks {
		mask.Columns[mask.Members[j]][i] = 1
	}
}

func nanSum(row []float64) float64 {
	s := 0.0
	for _, v := range row {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}
