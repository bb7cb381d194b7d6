package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"htsqc/internal/analysis"
	"htsqc/internal/dataprocessing"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/exporter"
	"htsqc/internal/infrastructure"
	"htsqc/internal/render"
)

// Step IDs, in execution order.
const (
	StepLoad      = "load"
	StepAggregate = "aggregate"
	StepMetrics   = "metrics"
	StepExport    = "export"
	StepRender    = "render"
)

// DefaultSteps returns the full QC pipeline.
func DefaultSteps() []Step {
	return []Step{
		NewLoadStep(),
		NewAggregateStep(),
		NewMetricsStep(),
		NewExportStep(),
		NewRenderStep(),
	}
}

// LoadStep reads the plate exports and joins them with the control layout.
type LoadStep struct {
	BaseStep
}

// NewLoadStep creates the load step.
func NewLoadStep() *LoadStep {
	return &LoadStep{BaseStep: NewBaseStep(StepLoad, "Load plate files")}
}

// Execute fails only when an existing input directory cannot be listed. A
// missing directory and bad files are recorded in the load report.
func (s *LoadStep) Execute(ctx context.Context, state *State) error {
	loader := dataprocessing.NewLoader("", dataprocessing.OptionsFromConfig(state.Config.Input), state.Logger)

	table, report, err := loader.Load(ctx, state.Paths.InputDir, state.Paths.ControlLayout)
	state.Table = table
	state.Load = report
	if err != nil {
		return err
	}
	if report.DirErr != nil {
		infrastructure.AddSpanEvent(ctx, "input.missing", map[string]interface{}{"dir": state.Paths.InputDir})
	}

	for _, o := range report.Outcomes {
		reason := ""
		if o.Err != nil {
			reason = skipReason(o.Err)
		}
		infrastructure.RecordFileOutcome(ctx, state.Metrics, o.OK(), reason)
	}
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"load.plates":  len(report.Loaded()),
		"load.skipped": len(report.Skipped()),
		"load.wells":   table.Len(),
	})
	return nil
}

// skipReason classifies a file failure for metrics.
func skipReason(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "UNKNOWN"
}

// AggregateStep computes the per-plate control statistics.
type AggregateStep struct {
	BaseStep
}

// NewAggregateStep creates the aggregate step.
func NewAggregateStep() *AggregateStep {
	return &AggregateStep{BaseStep: NewBaseStep(StepAggregate, "Aggregate control statistics")}
}

// Execute fills state.Stats with mean, std, median and MAD per control type.
func (s *AggregateStep) Execute(ctx context.Context, state *State) error {
	in := state.Config.Input
	state.Stats = analysis.NewAggregator(in.PositiveLabel, in.NegativeLabel).Aggregate(state.Table)
	state.Logger.DebugContext(ctx, "Control statistics aggregated",
		slog.Int("plates", len(state.Stats.Plates)),
		slog.Any("control_types", state.Stats.ControlTypes))
	return nil
}

// MetricsStep derives S/B, Z' and robust Z' for every plate.
type MetricsStep struct {
	BaseStep
}

// NewMetricsStep creates the metrics step.
func NewMetricsStep() *MetricsStep {
	return &MetricsStep{BaseStep: NewBaseStep(StepMetrics, "Calculate QC metrics")}
}

// Execute adds the QC metrics to state.Stats. Undefined metrics flag the
// plate and never fail the step.
func (s *MetricsStep) Execute(ctx context.Context, state *State) error {
	in := state.Config.Input
	state.Stats = analysis.NewCalculator(in.PositiveLabel, in.NegativeLabel).Apply(state.Stats)

	for _, p := range state.Stats.Plates {
		infrastructure.RecordPlateZFactor(ctx, state.Metrics, p.Plate, p.ZFactor, p.ZFactorRobust)
		if len(p.Flags) > 0 {
			infrastructure.WithPlate(state.Logger, p.Plate, p.Source).WarnContext(ctx,
				"Plate QC metrics undefined",
				slog.Any("qc_flags", p.Flags))
		}
	}
	return nil
}

// ExportStep writes the statistics table and workbook.
type ExportStep struct {
	BaseStep
}

// NewExportStep creates the export step.
func NewExportStep() *ExportStep {
	return &ExportStep{BaseStep: NewBaseStep(StepExport, "Export statistics")}
}

// Execute writes experiment-stats.csv and, when configured, the workbook.
func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	if err := exporter.NewStatsExporter(state.Sink, state.Logger).ExportStats(ctx, state.Paths.StatsFile, state.Stats); err != nil {
		return err
	}
	state.StatsFile = state.Sink.Location(state.Paths.StatsFile)

	if state.Paths.Workbook == "" {
		return nil
	}
	err := exporter.NewWorkbookExporter(state.Sink, state.Logger).
		ExportWorkbook(ctx, state.Paths.Workbook, state.Stats, state.Table)
	if err != nil {
		return err
	}
	state.Workbook = state.Sink.Location(state.Paths.Workbook)
	return nil
}

// RenderStep draws the figures.
type RenderStep struct {
	BaseStep
}

// NewRenderStep creates the render step.
func NewRenderStep() *RenderStep {
	return &RenderStep{BaseStep: NewBaseStep(StepRender, "Render figures")}
}

// Execute draws every figure. Figures that fail to draw are recorded; the
// step fails only if the output sink rejected a file.
func (s *RenderStep) Execute(ctx context.Context, state *State) error {
	r := render.NewRenderer(state.Sink, state.Paths, render.OptionsFromConfig(state.Config), state.Logger)
	state.Renders = r.RenderAll(ctx, state.Table, state.Stats)

	var storageErrs int
	var first error
	for _, o := range state.Renders {
		infrastructure.RecordFigure(ctx, state.Metrics, o.Figure, o.Err)
		if apperrors.IsType(o.Err, apperrors.ErrTypeStorage) {
			storageErrs++
			if first == nil {
				first = o.Err
			}
		}
	}
	if first != nil {
		return fmt.Errorf("%d figures could not be written: %w", storageErrs, first)
	}
	return ctx.Err()
}
