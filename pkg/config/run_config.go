package config

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
)

// RunConfig describes one swarm backtest run
type RunConfig struct {
	Strategy    StrategyConfig `yaml:"strategy"`
	Costs       CostsConfig    `yaml:"costs"`
	Sizing      SizingConfig   `yaml:"sizing"`
	Swarm       SwarmConfig    `yaml:"swarm"`
	Data        DataConfig     `yaml:"data"`
	Output      OutputConfig   `yaml:"output"`
	Workers     int            `yaml:"workers"`
	LogLevel    string         `yaml:"log_level"`
	MetricsAddr string         `yaml:"metrics_addr"`
}

// StrategyConfig selects the signal generator and its parameter sweep
type StrategyConfig struct {
	Name string `yaml:"name"`
	// Direction is "both", "long" or "short" and becomes the first parameter
	Direction string      `yaml:"direction"`
	Params    []ParamSpec `yaml:"params"`
}

// ParamSpec is one sweep dimension: either an inclusive range or a value list
type ParamSpec struct {
	Name    string    `yaml:"name"`
	Default float64   `yaml:"default"`
	Min     float64   `yaml:"min"`
	Max     float64   `yaml:"max"`
	Step    float64   `yaml:"step"`
	Values  []float64 `yaml:"values,omitempty"`
}

// CostsConfig selects the per-bar cost model
type CostsConfig struct {
	Model    string  `yaml:"model"` // none, fixed, percent
	PerTrade float64 `yaml:"per_trade"`
	Rate     float64 `yaml:"rate"`
}

// SizingConfig selects the position sizer
type SizingConfig struct {
	Mode   string  `yaml:"mode"` // fixed, volatility
	Value  float64 `yaml:"value"`
	Target float64 `yaml:"target"`
	Window int     `yaml:"window"`
}

// SwarmConfig configures member selection
type SwarmConfig struct {
	MembersCount  int             `yaml:"members_count"`
	WarmupBars    int             `yaml:"warmup_bars"`
	Ranking       RankingConfig   `yaml:"ranking"`
	Rebalance     RebalanceConfig `yaml:"rebalance"`
	GlobalFilter  FilterConfig    `yaml:"global_filter"`
	GatePositions bool            `yaml:"gate_positions"`
}

// RankingConfig selects the member ranker
type RankingConfig struct {
	Name   string `yaml:"name"` // trailing_return, trailing_sharpe
	Window int    `yaml:"window"`
	Hold   bool   `yaml:"hold_between_rebalances"`
}

// RebalanceConfig selects when the selection is recomputed
type RebalanceConfig struct {
	Mode    string `yaml:"mode"` // bars, weekly, cron
	Every   int    `yaml:"every"`
	Cron    string `yaml:"cron"`
	Weekday string `yaml:"weekday"`
}

// FilterConfig selects the optional regime filter
type FilterConfig struct {
	Name      string  `yaml:"name"` // none, above_ma, above_trailing_high
	Period    int     `yaml:"period"`
	Tolerance float64 `yaml:"tolerance"`
}

// DataConfig locates the price file
type DataConfig struct {
	File       string `yaml:"file"`
	Format     string `yaml:"format"` // ohlcv, close
	DateFormat string `yaml:"date_format"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
	Period     string `yaml:"period"`
}

// OutputConfig selects report sinks
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
	Excel   bool   `yaml:"excel"`
	CSV     bool   `yaml:"csv"`
	JSON    bool   `yaml:"json"`
	DB      string `yaml:"db"`
}

// NewDefaultRunConfig returns a config with every default applied
func NewDefaultRunConfig() *RunConfig {
	return &RunConfig{
		Strategy: StrategyConfig{Name: DefaultStrategy, Direction: DefaultDirection},
		Costs:    CostsConfig{Model: "none"},
		Sizing:   SizingConfig{Mode: "fixed", Value: 1, Target: DefaultSizingTarget, Window: DefaultSizingWindow},
		Swarm: SwarmConfig{
			MembersCount: DefaultMembersCount,
			WarmupBars:   DefaultWarmupBars,
			Ranking:      RankingConfig{Name: "trailing_return", Window: DefaultRankingWindow},
			Rebalance:    RebalanceConfig{Mode: "bars", Every: DefaultRebalanceBars},
			GlobalFilter: FilterConfig{Name: "none"},
		},
		Data:     DataConfig{Format: "ohlcv"},
		Output:   OutputConfig{Dir: DefaultOutputDir, Console: true},
		LogLevel: DefaultLogLevel,
	}
}

// Grid builds the sweep grid. The direction dimension always comes first.
// It returns nil when no params are configured so the strategy default applies.
func (c *RunConfig) Grid() (*optimization.Grid, error) {
	if len(c.Strategy.Params) == 0 {
		return nil, nil
	}

	dir, err := directionValues(c.Strategy.Direction)
	if err != nil {
		return nil, err
	}
	dims := []optimization.Dimension{optimization.ParamArray{Name: "direction", Options: dir}}
	for _, p := range c.Strategy.Params {
		if len(p.Values) > 0 {
			dims = append(dims, optimization.ParamArray{Name: p.Name, Options: p.Values})
			continue
		}
		dims = append(dims, optimization.Param{Name: p.Name, Default: p.Default, Min: p.Min, Max: p.Max, Step: p.Step})
	}
	return optimization.NewGrid(dims...), nil
}

func directionValues(direction string) ([]float64, error) {
	switch direction {
	case "both", "":
		return []float64{1, -1}, nil
	case "long":
		return []float64{1}, nil
	case "short":
		return []float64{-1}, nil
	default:
		return nil, fmt.Errorf("direction must be both, long or short, got %q", direction)
	}
}

// StartTime parses Data.Start; empty means unbounded
func (c *RunConfig) StartTime() (time.Time, error) {
	return parseDate(c.Data.Start)
}

// EndTime parses Data.End; empty means unbounded
func (c *RunConfig) EndTime() (time.Time, error) {
	return parseDate(c.Data.End)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}
