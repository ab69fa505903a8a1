package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/ducminhle1904/swarm-backtester/cmd/common"
	"github.com/ducminhle1904/swarm-backtester/pkg/config"
)

// SwarmFlags holds all command line flags for the swarm backtest command
type SwarmFlags struct {
	*common.CommonFlags

	// Configuration
	ConfigFile *string
	DataFile   *string

	// Overrides
	Members *int
	Workers *int

	// Outputs
	MetricsAddr *string
	DBPath      *string
	SweepOnly   *bool
}

// NewSwarmFlags registers every flag on fs
func NewSwarmFlags(fs *flag.FlagSet) *SwarmFlags {
	return &SwarmFlags{
		CommonFlags: common.RegisterCommonFlags(fs),

		ConfigFile: fs.String("config", "", "YAML run configuration file"),
		DataFile:   fs.String("data", "", "Price CSV file (overrides data.file)"),

		Members: fs.Int("members", 0, "Members held per rebalance (overrides swarm.members_count)"),
		Workers: fs.Int("workers", 0, "Sweep workers, 0 uses every CPU"),

		MetricsAddr: fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090"),
		DBPath:      fs.String("db", "", "Record the run into this SQLite database"),
		SweepOnly:   fs.Bool("sweep-only", false, "Run the parameter sweep without member selection"),
	}
}

// ValidateSwarmFlags checks flag values before any work starts
func ValidateSwarmFlags(f *SwarmFlags) error {
	v := common.NewFlagValidator()
	v.ValidateFile("config", *f.ConfigFile, false)
	v.ValidateInt("members", *f.Members, 0, 1<<20)
	v.ValidateInt("workers", *f.Workers, 0, 1<<10)
	if *f.LogLevel != "" {
		v.ValidateChoice("log-level", *f.LogLevel, []string{"trace", "debug", "info", "warn", "error"})
	}
	return v.GetError()
}

// ApplyOverrides copies explicitly set flags onto cfg
func ApplyOverrides(f *SwarmFlags, cfg *config.RunConfig) {
	if *f.DataFile != "" {
		cfg.Data.File = *f.DataFile
	}
	if *f.Members > 0 {
		cfg.Swarm.MembersCount = *f.Members
	}
	if *f.Workers > 0 {
		cfg.Workers = *f.Workers
	}
	if *f.LogLevel != "" {
		cfg.LogLevel = *f.LogLevel
	}
	if *f.MetricsAddr != "" {
		cfg.MetricsAddr = *f.MetricsAddr
	}
	if *f.DBPath != "" {
		cfg.Output.DB = *f.DBPath
	}
	if *f.ConsoleOnly {
		cfg.Output.Console = true
		cfg.Output.Excel = false
		cfg.Output.CSV = false
		cfg.Output.JSON = false
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "%s v%s - parameter sweep and rotating swarm selection\n\n", AppName, common.ProjectVersion)
	fmt.Fprintf(w, "USAGE:\n  swarm-backtest [OPTIONS]\n\n")
	fmt.Fprintf(w, "EXAMPLES:\n")
	fmt.Fprintf(w, "  swarm-backtest -config configs/sma.yaml\n")
	fmt.Fprintf(w, "  swarm-backtest -config configs/sma.yaml -data data/BTCUSDT_1d.csv -members 3 -console-only\n")
	fmt.Fprintf(w, "  swarm-backtest -config configs/sma.yaml -sweep-only -db runs.db\n\n")
	fmt.Fprintf(w, "OPTIONS:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
