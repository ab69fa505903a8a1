package recorder

import (
	"time"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
)

// RunRecord is one swarm run
type RunRecord struct {
	RunID          string
	Strategy       string
	DataFile       string
	CreatedAt      time.Time
	Bars           int
	Members        int
	EverPicked     int
	Rebalances     int
	AvgSwarmProfit float64
	EnsembleProfit float64
	EnsembleMaxDD  float64
}

// MemberStat is one member's sweep statistics within a run
type MemberStat struct {
	Name       string
	Picked     bool
	BarsPicked int
	Stats      backtest.Stats
}

// PickRecord holds the members selected at one rebalance bar
type PickRecord struct {
	Bar     int
	Time    time.Time
	Members []string
}

// EquityPoint is one bar of the run-level equity curves
type EquityPoint struct {
	Time     time.Time
	Average  float64
	Ensemble float64
	Picked   int
}

// Recorder persists swarm runs for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordMemberStats(runID string, stats []MemberStat) error
	RecordPicks(runID string, picks []PickRecord) error
	RecordEquity(runID string, points []EquityPoint) error
	Close() error
}
