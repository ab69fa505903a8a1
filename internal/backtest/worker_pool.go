package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	bterrors "github.com/ducminhle1904/swarm-backtester/internal/errors"
	"github.com/ducminhle1904/swarm-backtester/internal/monitoring"
	"github.com/ducminhle1904/swarm-backtester/internal/strategy"
	"github.com/ducminhle1904/swarm-backtester/pkg/optimization"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
	"github.com/rs/zerolog"
)

// SweepJob is one swarm member to simulate
type SweepJob struct {
	ID     string
	Params optimization.ParamSet
	Mask   *types.Flags
}

// SweepJobResult is the outcome of one SweepJob
type SweepJobResult struct {
	ID       string
	Member   *MemberResult
	Duration time.Duration
	Error    error
}

// MemberResult holds the simulated output of one member
type MemberResult struct {
	Name       string
	Params     optimization.ParamSet
	Direction  Direction
	InPosition types.Flags
	Result     *Result
}

// sweepEnv is shared read-only by all workers
type sweepEnv struct {
	strategy strategy.Strategy
	price    types.Series
	filter   *types.Flags
	opts     []AggregateOption
}

// WorkerPool simulates swarm members in parallel
type WorkerPool struct {
	workerCount int
	env         *sweepEnv
	jobQueue    chan SweepJob
	resultQueue chan SweepJobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// newWorkerPool creates a pool bound to parent; workerCount <= 0 uses runtime.NumCPU()
func newWorkerPool(parent context.Context, workerCount, jobBufferSize int, env *sweepEnv) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		workerCount: workerCount,
		env:         env,
		jobQueue:    make(chan SweepJob, jobBufferSize),
		resultQueue: make(chan SweepJobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool and waits for workers to exit
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Cancel aborts outstanding jobs
func (wp *WorkerPool) Cancel() {
	wp.cancel()
}

// SubmitJob submits a job to the pool
func (wp *WorkerPool) SubmitJob(job SweepJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan SweepJobResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			if wp.ctx.Err() != nil {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job SweepJob) SweepJobResult {
	start := time.Now()
	member, err := simulateMember(wp.env, job)
	d := time.Since(start)
	monitoring.RecordMember(wp.env.strategy.GetName(), d, err)
	return SweepJobResult{ID: job.ID, Member: member, Duration: d, Error: err}
}

// simulateMember runs signals, the simulator and aggregation for one member
func simulateMember(env *sweepEnv, job SweepJob) (*MemberResult, error) {
	if len(job.Params) == 0 {
		return nil, fmt.Errorf("member %s: %w: missing direction parameter", job.ID, ErrInvalidDirection)
	}
	dir, err := ParseDirection(job.Params[0])
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", job.ID, err)
	}

	signals, err := env.strategy.Calculate(env.price, job.Params)
	if err != nil {
		return nil, fmt.Errorf("member %s: signals: %w", job.ID, err)
	}

	pl, inPosition, err := Simulate(env.price, signals.Entry, signals.Exit, dir)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", job.ID, err)
	}

	if job.Mask != nil {
		if !job.Mask.Aligned(env.price.Index) {
			return nil, fmt.Errorf("member %s: %w: pick mask does not match price index", job.ID, ErrMisalignedSeries)
		}
		inPosition = inPosition.And(*job.Mask)
	}
	if env.filter != nil {
		inPosition = inPosition.And(*env.filter)
	}

	res, err := Aggregate(pl, inPosition, env.opts...)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", job.ID, err)
	}

	return &MemberResult{
		Name:       job.ID,
		Params:     job.Params,
		Direction:  dir,
		InPosition: inPosition,
		Result:     res,
	}, nil
}

// SweepConfig describes a parameter sweep over one price series
type SweepConfig struct {
	Strategy strategy.Strategy
	Price    types.Series
	Costs    strategy.CostModel
	Sizer    strategy.Sizer

	// Params defaults to the strategy grid's full cartesian product
	Params []optimization.ParamSet

	// Masks restricts the sweep to the named members and ANDs each mask into
	// that member's in-position flags
	Masks map[string]types.Flags

	// Filter is ANDed into every member's in-position flags when set
	Filter *types.Flags

	Workers int
	Logger  zerolog.Logger
}

// SweepResult holds every member's output keyed by member name
type SweepResult struct {
	Index   []time.Time
	Members []string
	Results map[string]*MemberResult
}

// Equity returns the named member's equity curve
func (r *SweepResult) Equity(member string) (types.Series, bool) {
	m, ok := r.Results[member]
	if !ok {
		return types.Series{}, false
	}
	return m.Result.Equity, true
}

// Stats returns the named member's statistics
func (r *SweepResult) Stats(member string) (Stats, bool) {
	m, ok := r.Results[member]
	if !ok {
		return Stats{}, false
	}
	return m.Result.Stats, true
}

// RunSweep simulates every member on a fixed worker pool. The first member
// failure cancels the remaining work and no partial result is returned.
func RunSweep(ctx context.Context, cfg SweepConfig) (*SweepResult, error) {
	env, jobs, err := prepareSweep(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, bterrors.NewSweepError("swarm_sweep", "start", err)
	}

	log := cfg.Logger
	name := cfg.Strategy.GetName()
	log.Info().Str("strategy", name).Int("members", len(jobs)).Int("bars", cfg.Price.Len()).Msg("sweep started")
	start := time.Now()

	pool := newWorkerPool(ctx, cfg.Workers, len(jobs), env)
	pool.Start()
	defer pool.Stop()

	for _, job := range jobs {
		if err := pool.SubmitJob(job); err != nil {
			monitoring.RecordSweep(name, err)
			return nil, bterrors.NewSweepError("swarm_sweep", "submit", err)
		}
	}

	results := make(map[string]*MemberResult, len(jobs))
	for range jobs {
		select {
		case res := <-pool.GetResults():
			if res.Error != nil {
				pool.Cancel()
				monitoring.RecordSweep(name, res.Error)
				log.Error().Err(res.Error).Str("member", res.ID).Msg("sweep aborted")
				return nil, bterrors.NewSweepError("swarm_sweep", "simulate", res.Error).WithContext("member", res.ID)
			}
			log.Debug().Str("member", res.ID).Dur("duration", res.Duration).
				Float64("netprofit", res.Member.Result.Stats.NetProfit).Msg("member simulated")
			results[res.ID] = res.Member
		case <-pool.ctx.Done():
			err := pool.ctx.Err()
			monitoring.RecordSweep(name, err)
			return nil, bterrors.NewSweepError("swarm_sweep", "collect", err)
		}
	}

	members := make([]string, len(jobs))
	for i, job := range jobs {
		members[i] = job.ID
	}

	monitoring.RecordSweep(name, nil)
	log.Info().Str("strategy", name).Int("members", len(members)).Dur("elapsed", time.Since(start)).Msg("sweep finished")

	return &SweepResult{Index: cfg.Price.Index, Members: members, Results: results}, nil
}

func prepareSweep(cfg SweepConfig) (*sweepEnv, []SweepJob, error) {
	if cfg.Strategy == nil {
		return nil, nil, bterrors.NewValidationError("swarm_sweep", "prepare", "strategy is required")
	}
	if cfg.Price.Len() == 0 {
		return nil, nil, bterrors.WrapError(ErrEmptySeries, bterrors.ErrorCategoryValidation, "swarm_sweep", "prepare")
	}
	if len(cfg.Price.Values) != len(cfg.Price.Index) {
		return nil, nil, bterrors.NewAlignmentError("swarm_sweep", "prepare", ErrMisalignedSeries)
	}
	if cfg.Filter != nil && !cfg.Filter.Aligned(cfg.Price.Index) {
		return nil, nil, bterrors.NewAlignmentError("swarm_sweep", "prepare",
			fmt.Errorf("%w: global filter does not match price index", ErrMisalignedSeries))
	}

	params := cfg.Params
	if len(params) == 0 {
		grid := cfg.Strategy.Grid()
		if grid == nil {
			return nil, nil, bterrors.NewValidationError("swarm_sweep", "prepare", "strategy has no parameter grid")
		}
		var err error
		params, err = grid.Combinations()
		if err != nil {
			return nil, nil, bterrors.NewConfigurationError("swarm_sweep", "prepare", err.Error())
		}
	}

	env := &sweepEnv{strategy: cfg.Strategy, price: cfg.Price, filter: cfg.Filter}
	if cfg.Costs != nil {
		env.opts = append(env.opts, WithCosts(cfg.Costs.Costs(cfg.Price)))
	}
	if cfg.Sizer != nil {
		size, err := cfg.Sizer.Size(cfg.Price)
		if err != nil {
			return nil, nil, bterrors.NewStrategyError("swarm_sweep", "position_size", err)
		}
		env.opts = append(env.opts, WithPositionSize(size))
	}

	seen := make(map[string]bool, len(params))
	jobs := make([]SweepJob, 0, len(params))
	for _, p := range params {
		id := p.Name()
		if seen[id] {
			return nil, nil, bterrors.NewValidationError("swarm_sweep", "prepare", "duplicate member "+id)
		}
		seen[id] = true

		job := SweepJob{ID: id, Params: p}
		if cfg.Masks != nil {
			mask, ok := cfg.Masks[id]
			if !ok {
				continue
			}
			job.Mask = &mask
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, nil, bterrors.NewValidationError("swarm_sweep", "prepare", "no members to simulate")
	}

	return env, jobs, nil
}
