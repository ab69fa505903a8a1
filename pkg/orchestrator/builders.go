package orchestrator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/internal/strategy"
	"github.com/ducminhle1904/swarm-backtester/internal/swarm"
	"github.com/ducminhle1904/swarm-backtester/pkg/config"
	"github.com/ducminhle1904/swarm-backtester/pkg/data"
	"github.com/ducminhle1904/swarm-backtester/pkg/reporting"
)

// BuildStrategy creates the configured strategy over the configured grid.
// Without params the strategy's default grid is used.
func BuildStrategy(cfg *config.RunConfig) (strategy.Strategy, error) {
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	return strategy.New(cfg.Strategy.Name, grid)
}

// BuildCosts returns the configured cost model; nil means no costs
func BuildCosts(cfg *config.RunConfig) (strategy.CostModel, error) {
	switch cfg.Costs.Model {
	case "", "none":
		return nil, nil
	case "fixed":
		return strategy.FixedCosts{PerTrade: cfg.Costs.PerTrade}, nil
	case "percent":
		return strategy.PercentCosts{Rate: cfg.Costs.Rate}, nil
	default:
		return nil, fmt.Errorf("unknown cost model %q", cfg.Costs.Model)
	}
}

// BuildSizer returns the configured position sizer
func BuildSizer(cfg *config.RunConfig) (strategy.Sizer, error) {
	switch cfg.Sizing.Mode {
	case "", "fixed":
		return strategy.FixedSize{Value: cfg.Sizing.Value}, nil
	case "volatility":
		return strategy.VolatilitySize{Target: cfg.Sizing.Target, Window: cfg.Sizing.Window}, nil
	default:
		return nil, fmt.Errorf("unknown sizing mode %q", cfg.Sizing.Mode)
	}
}

// BuildManagerConfig maps the swarm section onto a selector configuration
func BuildManagerConfig(cfg *config.RunConfig, log zerolog.Logger) (swarm.ManagerConfig, error) {
	s := cfg.Swarm
	ranker, err := swarm.NewRanker(s.Ranking.Name, s.Ranking.Window, s.Ranking.Hold)
	if err != nil {
		return swarm.ManagerConfig{}, err
	}
	rebalance, err := swarm.NewRebalance(s.Rebalance.Mode, s.Rebalance.Every, s.Rebalance.Cron, s.Rebalance.Weekday)
	if err != nil {
		return swarm.ManagerConfig{}, err
	}
	filter, err := swarm.NewGlobalFilter(s.GlobalFilter.Name, s.GlobalFilter.Period, s.GlobalFilter.Tolerance)
	if err != nil {
		return swarm.ManagerConfig{}, err
	}
	return swarm.ManagerConfig{
		MembersCount:  s.MembersCount,
		WarmupBars:    s.WarmupBars,
		Ranker:        ranker,
		Rebalance:     rebalance,
		GlobalFilter:  filter,
		GatePositions: s.GatePositions,
		Logger:        log,
	}, nil
}

// BuildCSVFormat returns the column mapping for cfg.Data
func BuildCSVFormat(cfg *config.RunConfig) (data.CSVColumnMapping, error) {
	var format data.CSVColumnMapping
	switch cfg.Data.Format {
	case "", "ohlcv":
		format = data.DefaultCSVFormat
	case "close":
		format = data.CloseOnlyCSVFormat
	default:
		return format, fmt.Errorf("unknown data format %q", cfg.Data.Format)
	}
	if cfg.Data.DateFormat != "" {
		format.DateFormat = cfg.Data.DateFormat
	}
	return format, nil
}

// BuildPriceQuery maps the data section onto a price query
func BuildPriceQuery(cfg *config.RunConfig) (data.PriceQuery, error) {
	start, err := cfg.StartTime()
	if err != nil {
		return data.PriceQuery{}, err
	}
	end, err := cfg.EndTime()
	if err != nil {
		return data.PriceQuery{}, err
	}
	return data.PriceQuery{Source: cfg.Data.File, Start: start, End: end, Period: cfg.Data.Period}, nil
}

// BuildReporting maps the output section onto a reporting configuration
func BuildReporting(cfg *config.RunConfig) reporting.ReportingConfig {
	o := cfg.Output
	return reporting.ReportingConfig{
		EnableConsole:   o.Console,
		EnableFiles:     o.Excel || o.CSV || o.JSON,
		OutputDirectory: o.Dir,
		ExcelEnabled:    o.Excel,
		CSVEnabled:      o.CSV,
		JSONEnabled:     o.JSON,
		TopMembers:      10,
	}
}
