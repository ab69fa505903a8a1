package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/cmd/common"
	bterrors "github.com/ducminhle1904/swarm-backtester/internal/errors"
	"github.com/ducminhle1904/swarm-backtester/internal/logger"
	"github.com/ducminhle1904/swarm-backtester/internal/monitoring"
	"github.com/ducminhle1904/swarm-backtester/internal/recorder"
	"github.com/ducminhle1904/swarm-backtester/pkg/config"
	"github.com/ducminhle1904/swarm-backtester/pkg/orchestrator"
)

const AppName = "Swarm Backtest"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("swarm-backtest", flag.ContinueOnError)
	flags := NewSwarmFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *flags.Version {
		common.PrintVersion(AppName)
		return 0
	}
	if *flags.Help {
		printUsage(os.Stdout, fs)
		return 0
	}
	if err := ValidateSwarmFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 2
	}

	if err := config.LoadEnv(*flags.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
	}

	mgr := config.NewManager()
	cfg, err := mgr.Load(*flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return 1
	}
	ApplyOverrides(flags, cfg)
	if err := mgr.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return 1
	}

	log, closeLog, err := newLogger(*flags.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	defer closeLog()

	if cfg.MetricsAddr != "" {
		srv := monitoring.Serve(cfg.MetricsAddr, log)
		defer srv.Close()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server started")
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Output.DB != "" {
		sqlRec, err := recorder.NewSQLiteRecorder(cfg.Output.DB, log)
		if err != nil {
			log.Error().Err(err).Msg("could not open run database")
			return 1
		}
		rec = sqlRec
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.NewOrchestrator(orchestrator.Deps{
		Recorder: rec,
		Out:      os.Stdout,
		Logger:   log,
	})
	wf := orchestrator.NewSwarmWorkflow(orch, cfg)
	if *flags.SweepOnly {
		wf = orchestrator.NewSweepWorkflow(orch, cfg)
	}

	report, err := wf.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("run interrupted")
			return 130
		}
		log.Error().Err(err).Str("category", string(bterrors.CategoryOf(err))).
			Str("workflow", string(wf.GetWorkflowType())).Msg("run failed")
		return 1
	}

	for _, f := range report.Files {
		fmt.Printf("📁 %s\n", f)
	}
	return 0
}

func newLogger(dir, level string) (zerolog.Logger, func(), error) {
	if dir == "" {
		return logger.Console(level), func() {}, nil
	}
	fl, err := logger.NewFileLogger(dir, "swarm-backtest", level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	return fl.Logger, func() { fl.Close() }, nil
}
