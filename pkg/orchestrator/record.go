package orchestrator

import (
	"github.com/ducminhle1904/swarm-backtester/internal/recorder"
	"github.com/ducminhle1904/swarm-backtester/pkg/reporting"
)

// Record stores a finished run, its members, its rebalance picks and its
// equity curves
func Record(rec recorder.Recorder, run *reporting.RunReport) error {
	s := run.Summarize()
	if err := rec.RecordRun(&recorder.RunRecord{
		RunID:          s.RunID,
		Strategy:       s.Strategy,
		DataFile:       s.DataFile,
		CreatedAt:      s.GeneratedAt,
		Bars:           s.Bars,
		Members:        s.Members,
		EverPicked:     s.EverPicked,
		Rebalances:     s.Rebalances,
		AvgSwarmProfit: s.AvgSwarmProfit,
		EnsembleProfit: s.EnsembleProfit,
		EnsembleMaxDD:  s.EnsembleMaxDD,
	}); err != nil {
		return err
	}

	rows := run.MemberRows()
	stats := make([]recorder.MemberStat, len(rows))
	for i, row := range rows {
		stats[i] = recorder.MemberStat{Name: row.Name, Picked: row.Picked, BarsPicked: row.BarsPicked, Stats: row.Stats}
	}
	if err := rec.RecordMemberStats(s.RunID, stats); err != nil {
		return err
	}

	rebalances := run.Rebalances()
	picks := make([]recorder.PickRecord, len(rebalances))
	for i, p := range rebalances {
		picks[i] = recorder.PickRecord{Bar: p.Bar, Time: p.Time, Members: p.Members}
	}
	if err := rec.RecordPicks(s.RunID, picks); err != nil {
		return err
	}

	equity := run.EquityRows()
	points := make([]recorder.EquityPoint, len(equity))
	for i, e := range equity {
		points[i] = recorder.EquityPoint{Time: e.Time, Average: e.Average, Ensemble: e.Ensemble, Picked: e.Picked}
	}
	return rec.RecordEquity(s.RunID, points)
}
