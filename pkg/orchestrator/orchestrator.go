package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/swarm-backtester/internal/errors"
	"github.com/ducminhle1904/swarm-backtester/internal/recorder"
	"github.com/ducminhle1904/swarm-backtester/internal/strategy"
	"github.com/ducminhle1904/swarm-backtester/internal/swarm"
	"github.com/ducminhle1904/swarm-backtester/pkg/config"
	"github.com/ducminhle1904/swarm-backtester/pkg/data"
	"github.com/ducminhle1904/swarm-backtester/pkg/reporting"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

var _ Orchestrator = (*DefaultOrchestrator)(nil)

// DefaultOrchestrator implements the Orchestrator interface
type DefaultOrchestrator struct {
	deps Deps
	log  zerolog.Logger
}

// NewOrchestrator creates an orchestrator over deps
func NewOrchestrator(deps Deps) *DefaultOrchestrator {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &DefaultOrchestrator{
		deps: deps,
		log:  deps.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes the full swarm pipeline for cfg
func Run(ctx context.Context, cfg *config.RunConfig, deps Deps) (*Report, error) {
	return NewOrchestrator(deps).RunSwarm(ctx, cfg)
}

// RunSwarm loads prices, sweeps every member, picks the swarm, re-simulates
// the picked members and hands the result to the report and record sinks
func (o *DefaultOrchestrator) RunSwarm(ctx context.Context, cfg *config.RunConfig) (*Report, error) {
	env, err := o.prepare(cfg)
	if err != nil {
		return nil, err
	}

	sweep, err := backtest.RunSweep(ctx, env.sweepCfg)
	if err != nil {
		return nil, err
	}

	tbl, err := swarm.TableFromSweep(sweep)
	if err != nil {
		return nil, bterrors.NewAlignmentError("orchestrator", "swarm_table", err)
	}

	mcfg, err := BuildManagerConfig(cfg, o.deps.Logger)
	if err != nil {
		return nil, bterrors.NewConfigurationError("orchestrator", "build_manager", err.Error())
	}
	mgr, err := swarm.NewManager(mcfg)
	if err != nil {
		return nil, err
	}

	pick, err := mgr.Pick(ctx, tbl, &swarm.SweepResimulator{
		Strategy: env.strategy,
		Price:    env.price,
		Costs:    env.sweepCfg.Costs,
		Sizer:    env.sweepCfg.Sizer,
		Workers:  cfg.Workers,
		Logger:   o.deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	return o.finish(cfg, env, sweep, pick)
}

// RunSweep loads prices and sweeps every member without selection
func (o *DefaultOrchestrator) RunSweep(ctx context.Context, cfg *config.RunConfig) (*Report, error) {
	env, err := o.prepare(cfg)
	if err != nil {
		return nil, err
	}
	sweep, err := backtest.RunSweep(ctx, env.sweepCfg)
	if err != nil {
		return nil, err
	}
	return o.finish(cfg, env, sweep, nil)
}

type runEnv struct {
	strategy strategy.Strategy
	price    types.Series
	sweepCfg backtest.SweepConfig
}

func (o *DefaultOrchestrator) prepare(cfg *config.RunConfig) (*runEnv, error) {
	strat, err := BuildStrategy(cfg)
	if err != nil {
		return nil, bterrors.NewConfigurationError("orchestrator", "build_strategy", err.Error())
	}
	costs, err := BuildCosts(cfg)
	if err != nil {
		return nil, bterrors.NewConfigurationError("orchestrator", "build_costs", err.Error())
	}
	sizer, err := BuildSizer(cfg)
	if err != nil {
		return nil, bterrors.NewConfigurationError("orchestrator", "build_sizer", err.Error())
	}

	price, err := o.loadPrices(cfg)
	if err != nil {
		return nil, err
	}

	o.log.Info().
		Str("strategy", strat.GetName()).
		Str("data", cfg.Data.File).
		Int("bars", price.Len()).
		Msg("run prepared")

	return &runEnv{
		strategy: strat,
		price:    price,
		sweepCfg: backtest.SweepConfig{
			Strategy: strat,
			Price:    price,
			Costs:    costs,
			Sizer:    sizer,
			Workers:  cfg.Workers,
			Logger:   o.deps.Logger,
		},
	}, nil
}

func (o *DefaultOrchestrator) loadPrices(cfg *config.RunConfig) (types.Series, error) {
	q, err := BuildPriceQuery(cfg)
	if err != nil {
		return types.Series{}, bterrors.NewConfigurationError("orchestrator", "price_query", err.Error())
	}

	loader := o.deps.Prices
	if loader == nil {
		format, err := BuildCSVFormat(cfg)
		if err != nil {
			return types.Series{}, bterrors.NewConfigurationError("orchestrator", "csv_format", err.Error())
		}
		loader = data.NewDataManager(format, o.deps.Logger)
	}

	price, err := loader.LoadPrices(q)
	if err != nil {
		return types.Series{}, bterrors.NewDataError("orchestrator", "load_prices", err).
			WithContext("source", q.Source)
	}
	if price.Len() < config.MinDataPoints {
		return types.Series{}, bterrors.NewBacktestError(bterrors.ErrorCategoryData, "orchestrator", "load_prices",
			fmt.Sprintf("need at least %d bars, got %d", config.MinDataPoints, price.Len()))
	}
	return price, nil
}

func (o *DefaultOrchestrator) finish(cfg *config.RunConfig, env *runEnv, sweep *backtest.SweepResult, pick *swarm.PickResult) (*Report, error) {
	now := o.deps.Now()
	run := &reporting.RunReport{
		RunID:       fmt.Sprintf("%s-%s", env.strategy.GetName(), now.UTC().Format("20060102T150405")),
		Strategy:    env.strategy.GetName(),
		DataFile:    cfg.Data.File,
		GeneratedAt: now,
		Sweep:       sweep,
		Pick:        pick,
	}
	report := &Report{RunReport: run}

	rm := o.deps.Reporting
	if rm == nil {
		rm = reporting.NewReportingManager(BuildReporting(cfg))
	}
	files, err := rm.ReportResults(o.deps.Out, run)
	report.Files = files
	if err != nil {
		return report, bterrors.NewStorageError("orchestrator", "report", err)
	}

	rec := o.deps.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if err := Record(rec, run); err != nil {
		return report, bterrors.NewStorageError("orchestrator", "record", err).
			WithContext("run_id", run.RunID)
	}

	s := run.Summarize()
	o.log.Info().
		Str("run_id", run.RunID).
		Int("members", s.Members).
		Int("ever_picked", s.EverPicked).
		Float64("ensemble_profit", s.EnsembleProfit).
		Strs("files", files).
		Msg("run finished")
	return report, nil
}
