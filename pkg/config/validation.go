package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// RunValidator implements Validator for run configurations
type RunValidator struct{}

// NewRunValidator creates a new run validator
func NewRunValidator() *RunValidator {
	return &RunValidator{}
}

// Validate checks every section and reports all problems at once
func (v *RunValidator) Validate(cfg *RunConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	v.validateStrategy(cfg, add)
	v.validateCosts(cfg, add)
	v.validateSizing(cfg, add)
	v.validateSwarm(cfg, add)
	v.validateData(cfg, add)

	if cfg.Workers < 0 {
		add("workers cannot be negative, got %d", cfg.Workers)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (v *RunValidator) validateStrategy(cfg *RunConfig, add func(string, ...interface{})) {
	switch cfg.Strategy.Name {
	case "sma_crossover", "breakout":
	default:
		add("strategy.name must be sma_crossover or breakout, got %q", cfg.Strategy.Name)
	}
	if _, err := directionValues(cfg.Strategy.Direction); err != nil {
		add("strategy.%v", err)
	}

	seen := make(map[string]bool)
	for i, p := range cfg.Strategy.Params {
		if p.Name == "" {
			add("strategy.params[%d].name is required", i)
		}
		if p.Name == "direction" {
			add("strategy.params[%d]: direction is set by strategy.direction", i)
		}
		if seen[p.Name] {
			add("strategy.params[%d]: duplicate parameter %q", i, p.Name)
		}
		seen[p.Name] = true
		if len(p.Values) > 0 {
			continue
		}
		if p.Step <= 0 {
			add("strategy.params[%d].step must be positive, got %v", i, p.Step)
		}
		if p.Max < p.Min {
			add("strategy.params[%d]: max (%v) is below min (%v)", i, p.Max, p.Min)
		}
	}
}

func (v *RunValidator) validateCosts(cfg *RunConfig, add func(string, ...interface{})) {
	switch cfg.Costs.Model {
	case "none", "":
	case "fixed":
		if cfg.Costs.PerTrade < 0 {
			add("costs.per_trade cannot be negative, got %v", cfg.Costs.PerTrade)
		}
	case "percent":
		if cfg.Costs.Rate < 0 || cfg.Costs.Rate > MaxCostRate {
			add("costs.rate must be between 0 and %.2f, got %v", MaxCostRate, cfg.Costs.Rate)
		}
	default:
		add("costs.model must be none, fixed or percent, got %q", cfg.Costs.Model)
	}
}

func (v *RunValidator) validateSizing(cfg *RunConfig, add func(string, ...interface{})) {
	switch cfg.Sizing.Mode {
	case "fixed", "":
		if cfg.Sizing.Value < 0 {
			add("sizing.value cannot be negative, got %v", cfg.Sizing.Value)
		}
	case "volatility":
		if cfg.Sizing.Target <= 0 {
			add("sizing.target must be positive, got %v", cfg.Sizing.Target)
		}
		if cfg.Sizing.Window < 2 {
			add("sizing.window must be at least 2, got %d", cfg.Sizing.Window)
		}
	default:
		add("sizing.mode must be fixed or volatility, got %q", cfg.Sizing.Mode)
	}
}

func (v *RunValidator) validateSwarm(cfg *RunConfig, add func(string, ...interface{})) {
	s := cfg.Swarm
	if s.MembersCount <= 0 {
		add("swarm.members_count must be positive, got %d", s.MembersCount)
	}
	if s.WarmupBars < 0 {
		add("swarm.warmup_bars cannot be negative, got %d", s.WarmupBars)
	}

	switch s.Ranking.Name {
	case "trailing_return", "":
		if s.Ranking.Window <= 0 {
			add("swarm.ranking.window must be positive, got %d", s.Ranking.Window)
		}
	case "trailing_sharpe":
		if s.Ranking.Window < 2 {
			add("swarm.ranking.window must be at least 2, got %d", s.Ranking.Window)
		}
	default:
		add("swarm.ranking.name must be trailing_return or trailing_sharpe, got %q", s.Ranking.Name)
	}

	switch s.Rebalance.Mode {
	case "bars", "":
		if s.Rebalance.Every <= 0 {
			add("swarm.rebalance.every must be positive, got %d", s.Rebalance.Every)
		}
	case "cron":
		if _, err := cron.ParseStandard(s.Rebalance.Cron); err != nil {
			add("swarm.rebalance.cron %q is invalid: %v", s.Rebalance.Cron, err)
		}
	case "weekly":
	default:
		add("swarm.rebalance.mode must be bars, weekly or cron, got %q", s.Rebalance.Mode)
	}

	switch s.GlobalFilter.Name {
	case "none", "":
	case "above_ma":
		if s.GlobalFilter.Period <= 0 {
			add("swarm.global_filter.period must be positive, got %d", s.GlobalFilter.Period)
		}
	case "above_trailing_high":
		if s.GlobalFilter.Period < 0 || s.GlobalFilter.Tolerance < 0 {
			add("swarm.global_filter period and tolerance cannot be negative")
		}
	default:
		add("swarm.global_filter.name must be none, above_ma or above_trailing_high, got %q", s.GlobalFilter.Name)
	}
}

func (v *RunValidator) validateData(cfg *RunConfig, add func(string, ...interface{})) {
	if cfg.Data.File == "" {
		add("data.file is required")
	}
	switch cfg.Data.Format {
	case "ohlcv", "close", "":
	default:
		add("data.format must be ohlcv or close, got %q", cfg.Data.Format)
	}
	start, err := cfg.StartTime()
	if err != nil {
		add("data.start: %v", err)
	}
	end, err := cfg.EndTime()
	if err != nil {
		add("data.end: %v", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		add("data.end is before data.start")
	}
}
