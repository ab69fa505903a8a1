package config

// Package config provides run configuration for swarm backtests

// Validator checks a run configuration
type Validator interface {
	Validate(cfg *RunConfig) error
}

// Common configuration constants
const (
	// Default parameter values
	DefaultStrategy      = "sma_crossover"
	DefaultDirection     = "both"
	DefaultMembersCount  = 5
	DefaultWarmupBars    = 100
	DefaultRankingWindow = 20
	DefaultRebalanceBars = 20
	DefaultSizingTarget  = 1.0
	DefaultSizingWindow  = 20
	DefaultLogLevel      = "info"

	// Data validation constants
	MinDataPoints = 2
	MaxCostRate   = 1.0 // 100% of price per side

	// File and directory constants
	DefaultOutputDir = "results"
	DefaultEnvFile   = ".env"
)

// Environment variable overrides
const (
	EnvDataFile     = "SWARM_DATA_FILE"
	EnvMembersCount = "SWARM_MEMBERS_COUNT"
	EnvWorkers      = "SWARM_WORKERS"
	EnvLogLevel     = "SWARM_LOG_LEVEL"
	EnvDBPath       = "SWARM_DB_PATH"
	EnvMetricsAddr  = "SWARM_METRICS_ADDR"
)
