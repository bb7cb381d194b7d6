// Command htsqc runs quality control over a directory of HTS plate-reader
// exports: per-plate control statistics, Z' factors, diagnostic figures and
// an experiment statistics table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"htsqc/internal/config"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
	"htsqc/internal/infrastructure"
	"htsqc/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one QC run and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("htsqc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "optional YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "htsqc: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "htsqc: %v\n", err)
		return 1
	}
	defer func() { _ = infrastructure.CloseLogFile() }()

	runID := infrastructure.GenerateTraceID()
	ctx = infrastructure.WithTraceID(ctx, runID)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, runID), logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.CreateRunMetrics(providers.Meter)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create run metrics", slog.String("error", err.Error()))
		return 1
	}

	logger.InfoContext(ctx, "Starting HTS QC run",
		slog.String("version", config.AppVersion),
		slog.String("input_dir", cfg.Input.Directory),
		slog.String("control_layout", cfg.Input.ControlLayout),
		slog.String("output_root", cfg.Output.Root))

	report, runErr := pipeline.Run(ctx, pipeline.Options{
		RunID:   runID,
		Config:  cfg,
		Sink:    files.NewDirSink(cfg.Output.Root, logger),
		Logger:  logger,
		Tracer:  providers.Tracer,
		Metrics: metrics,
	})

	logSummary(ctx, logger, report)

	if runErr != nil {
		logger.ErrorContext(ctx, "HTS QC run failed",
			slog.String("error", runErr.Error()),
			slog.String("error_type", string(apperrors.TypeOf(runErr))))
		return 1
	}

	logger.InfoContext(ctx, "HTS QC run completed")
	return 0
}

func logSummary(ctx context.Context, logger *slog.Logger, report *pipeline.Report) {
	if report == nil {
		return
	}
	summary := report.Summary()

	data, err := json.Marshal(summary)
	if err != nil {
		logger.WarnContext(ctx, "Failed to encode run summary", slog.String("error", err.Error()))
		return
	}
	logger.InfoContext(ctx, "Run summary", slog.String("summary", string(data)))

	if summary.ZFactor.Mean != nil {
		logger.InfoContext(ctx, "Experiment Z' factor",
			slog.Float64("mean", *summary.ZFactor.Mean),
			slog.Float64("median", *summary.ZFactor.Median),
			slog.Int("plates", summary.ZFactor.Plates))
	}
	if summary.ZFactorRobust.Mean != nil {
		logger.InfoContext(ctx, "Experiment robust Z' factor",
			slog.Float64("mean", *summary.ZFactorRobust.Mean),
			slog.Float64("median", *summary.ZFactorRobust.Median),
			slog.Int("plates", summary.ZFactorRobust.Plates))
	}
}
