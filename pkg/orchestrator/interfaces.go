package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/internal/recorder"
	"github.com/ducminhle1904/swarm-backtester/pkg/config"
	"github.com/ducminhle1904/swarm-backtester/pkg/data"
	"github.com/ducminhle1904/swarm-backtester/pkg/reporting"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Orchestrator coordinates all swarm backtest components and workflows
type Orchestrator interface {
	// RunSwarm executes sweep, selection and re-simulation for cfg
	RunSwarm(ctx context.Context, cfg *config.RunConfig) (*Report, error)

	// RunSweep executes only the parameter sweep for cfg
	RunSweep(ctx context.Context, cfg *config.RunConfig) (*Report, error)
}

// Workflow represents different execution workflows
type Workflow interface {
	// Execute runs the workflow and returns its report
	Execute(ctx context.Context) (*Report, error)

	// GetWorkflowType returns the type of workflow
	GetWorkflowType() WorkflowType
}

// WorkflowType represents different types of workflows
type WorkflowType string

const (
	WorkflowTypeSwarm WorkflowType = "swarm"
	WorkflowTypeSweep WorkflowType = "sweep"
)

// PriceLoader loads the close price series selected by a query
type PriceLoader interface {
	LoadPrices(q data.PriceQuery) (types.Series, error)
}

// Deps are the collaborators a run uses. Nil fields fall back to defaults:
// CSV prices in the configured format, no recorder, reporting from
// cfg.Output, stdout and a no-op logger.
type Deps struct {
	Prices    PriceLoader
	Recorder  recorder.Recorder
	Reporting *reporting.ReportingManager
	Out       io.Writer
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Report is the outcome of one run
type Report struct {
	*reporting.RunReport
	// Files lists the report files written
	Files []string
}
