package orchestrator

import (
	"context"

	"github.com/ducminhle1904/swarm-backtester/pkg/config"
)

// SwarmWorkflow runs sweep, selection and re-simulation
type SwarmWorkflow struct {
	orchestrator Orchestrator
	config       *config.RunConfig
}

// NewSwarmWorkflow creates a new swarm workflow
func NewSwarmWorkflow(orchestrator Orchestrator, config *config.RunConfig) Workflow {
	return &SwarmWorkflow{orchestrator: orchestrator, config: config}
}

// Execute runs the swarm workflow
func (w *SwarmWorkflow) Execute(ctx context.Context) (*Report, error) {
	return w.orchestrator.RunSwarm(ctx, w.config)
}

// GetWorkflowType returns the workflow type
func (w *SwarmWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeSwarm
}

// SweepWorkflow runs the parameter sweep only
type SweepWorkflow struct {
	orchestrator Orchestrator
	config       *config.RunConfig
}

// NewSweepWorkflow creates a new sweep-only workflow
func NewSweepWorkflow(orchestrator Orchestrator, config *config.RunConfig) Workflow {
	return &SweepWorkflow{orchestrator: orchestrator, config: config}
}

// Execute runs the sweep workflow
func (w *SweepWorkflow) Execute(ctx context.Context) (*Report, error) {
	return w.orchestrator.RunSweep(ctx, w.config)
}

// GetWorkflowType returns the workflow type
func (w *SweepWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeSweep
}
