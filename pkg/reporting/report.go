package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	"github.com/ducminhle1904/swarm-backtester/internal/swarm"
)

// RunReport is everything produced by one swarm run
type RunReport struct {
	RunID       string
	Strategy    string
	DataFile    string
	GeneratedAt time.Time
	Sweep       *backtest.SweepResult
	Pick        *swarm.PickResult
}

// MemberRow summarizes one swarm member
type MemberRow struct {
	Name       string
	Picked     bool
	BarsPicked int
	Stats      backtest.Stats
	// Ensemble holds the member's stats inside the ensemble when it was picked
	Ensemble *backtest.Stats
}

// Summary is the run-level overview
type Summary struct {
	RunID          string    `json:"run_id"`
	Strategy       string    `json:"strategy"`
	DataFile       string    `json:"data_file"`
	GeneratedAt    time.Time `json:"generated_at"`
	Bars           int       `json:"bars"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Members        int       `json:"members"`
	EverPicked     int       `json:"ever_picked"`
	Rebalances     int       `json:"rebalances"`
	AvgSwarmProfit float64   `json:"avg_swarm_profit"`
	EnsembleProfit float64   `json:"ensemble_profit"`
	EnsembleMaxDD  float64   `json:"ensemble_max_dd"`
	EnsembleTrades int       `json:"ensemble_trades"`
	BestMember     string    `json:"best_member"`
	BestProfit     float64   `json:"best_profit"`
}

// Summarize builds the run overview
func (r *RunReport) Summarize() Summary {
	s := Summary{
		RunID:       r.RunID,
		Strategy:    r.Strategy,
		DataFile:    r.DataFile,
		GeneratedAt: r.GeneratedAt,
	}
	if r.Sweep != nil {
		s.Members = len(r.Sweep.Members)
		s.Bars = len(r.Sweep.Index)
		if s.Bars > 0 {
			s.Start = r.Sweep.Index[0]
			s.End = r.Sweep.Index[s.Bars-1]
		}
		rows := r.MemberRows()
		if len(rows) > 0 {
			s.BestMember = rows[0].Name
			s.BestProfit = rows[0].Stats.NetProfit
		}
	}
	if r.Pick != nil {
		if r.Pick.Mask != nil {
			s.EverPicked = len(r.Pick.Mask.Members)
		}
		s.Rebalances = r.Pick.Schedule.Sum()
		s.AvgSwarmProfit = r.Pick.AverageEquity.Last()
		if ens := r.Pick.Ensemble; ens != nil {
			s.EnsembleProfit = ens.Equity.Last()
			s.EnsembleMaxDD = backtest.MaxDrawdown(ens.Equity.Values)
			for _, st := range ens.Stats() {
				s.EnsembleTrades += st.Count
			}
		}
	}
	return s
}

// MemberRows lists every swarm member ordered by net profit, best first.
// Equal profits keep sweep order.
func (r *RunReport) MemberRows() []MemberRow {
	if r.Sweep == nil {
		return nil
	}
	rows := make([]MemberRow, 0, len(r.Sweep.Members))
	for _, name := range r.Sweep.Members {
		st, _ := r.Sweep.Stats(name)
		row := MemberRow{Name: name, Stats: st}
		if r.Pick != nil && r.Pick.Mask != nil {
			if _, ok := r.Pick.Mask.Columns[name]; ok {
				row.Picked = true
				row.BarsPicked = r.Pick.Mask.Flags(name).Sum()
			}
			if ens := r.Pick.Ensemble; ens != nil {
				if m, ok := ens.Results[name]; ok {
					es := m.Result.Stats
					row.Ensemble = &es
				}
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Stats.NetProfit > rows[j].Stats.NetProfit
	})
	return rows
}

// EquityRow is one bar of the run-level equity curves
type EquityRow struct {
	Time     time.Time
	Average  float64
	Ensemble float64
	Picked   int
	Rebal    bool
}

// EquityRows returns the average swarm and ensemble equity with the number
// of picked members per bar
func (r *RunReport) EquityRows() []EquityRow {
	if r.Pick == nil {
		return nil
	}
	idx := r.Pick.AverageEquity.Index
	rows := make([]EquityRow, len(idx))
	for i, ts := range idx {
		row := EquityRow{Time: ts, Average: r.Pick.AverageEquity.Values[i]}
		if r.Pick.Ensemble != nil {
			row.Ensemble = r.Pick.Ensemble.Equity.Values[i]
		}
		if r.Pick.Mask != nil {
			row.Picked = r.Pick.Mask.Count(i)
		}
		if r.Pick.Schedule.Len() > i {
			row.Rebal = r.Pick.Schedule.At(i)
		}
		rows[i] = row
	}
	return rows
}

// RebalancePick is the selection made at one rebalance bar
type RebalancePick struct {
	Bar     int
	Time    time.Time
	Members []string
}

// Rebalances lists the members held right after each rebalance bar.
// Members are in sweep order.
func (r *RunReport) Rebalances() []RebalancePick {
	if r.Pick == nil || r.Pick.Mask == nil {
		return nil
	}
	var out []RebalancePick
	for i := 0; i < r.Pick.Schedule.Len(); i++ {
		if !r.Pick.Schedule.At(i) {
			continue
		}
		out = append(out, RebalancePick{
			Bar:     i,
			Time:    r.Pick.Mask.Index[i],
			Members: r.Pick.Mask.PickedAt(i),
		})
	}
	return out
}

func joinMembers(members []string) string {
	return strings.Join(members, "; ")
}
