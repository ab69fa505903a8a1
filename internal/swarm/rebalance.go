package swarm

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// EveryNBars rebalances on bars Offset, Offset+N, Offset+2N, ...
type EveryNBars struct {
	N      int
	Offset int
}

// Schedule implements RebalanceScheduler
func (e EveryNBars) Schedule(swarm *Table) (types.Flags, error) {
	if e.N <= 0 {
		return types.Flags{}, fmt.Errorf("rebalance interval must be positive, got %d", e.N)
	}
	if e.Offset < 0 {
		return types.Flags{}, fmt.Errorf("rebalance offset cannot be negative, got %d", e.Offset)
	}
	out := types.NewFlags(swarm.Index)
	for i := e.Offset; i < len(out.Values); i += e.N {
		out.Values[i] = 1
	}
	return out, nil
}

// Weekly rebalances on the first bar of each ISO week that falls on or after
// Weekday
type Weekly struct {
	Weekday time.Weekday
}

// Schedule implements RebalanceScheduler
func (w Weekly) Schedule(swarm *Table) (types.Flags, error) {
	out := types.NewFlags(swarm.Index)
	target := mondayFirst(w.Weekday)
	var lastYear, lastWeek int
	for i, ts := range swarm.Index {
		year, week := ts.ISOWeek()
		if year == lastYear && week == lastWeek {
			continue
		}
		if mondayFirst(ts.Weekday()) < target {
			continue
		}
		out.Values[i] = 1
		lastYear, lastWeek = year, week
	}
	return out, nil
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// CronSchedule rebalances on the first bar at or after each firing of a
// standard five-field cron expression
type CronSchedule struct {
	Spec string
}

// Schedule implements RebalanceScheduler
func (c CronSchedule) Schedule(swarm *Table) (types.Flags, error) {
	sched, err := cron.ParseStandard(c.Spec)
	if err != nil {
		return types.Flags{}, fmt.Errorf("invalid cron schedule %q: %w", c.Spec, err)
	}
	out := types.NewFlags(swarm.Index)
	if len(swarm.Index) == 0 {
		return out, nil
	}
	first := swarm.Index[0]
	if !sched.Next(first.Add(-time.Second)).After(first) {
		out.Values[0] = 1
	}
	for i := 1; i < len(swarm.Index); i++ {
		if !sched.Next(swarm.Index[i-1]).After(swarm.Index[i]) {
			out.Values[i] = 1
		}
	}
	return out, nil
}

// NewRebalance creates a rebalance scheduler by mode
func NewRebalance(mode string, every int, spec string, weekday string) (RebalanceScheduler, error) {
	switch mode {
	case "bars", "":
		return EveryNBars{N: every}, nil
	case "cron":
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
		}
		return CronSchedule{Spec: spec}, nil
	case "weekly":
		d, err := ParseWeekday(weekday)
		if err != nil {
			return nil, err
		}
		return Weekly{Weekday: d}, nil
	default:
		return nil, fmt.Errorf("unknown rebalance mode %q", mode)
	}
}

// ParseWeekday parses an English weekday name; empty means Monday
func ParseWeekday(s string) (time.Weekday, error) {
	if s == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
