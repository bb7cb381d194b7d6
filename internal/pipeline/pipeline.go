package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"htsqc/internal/analysis"
	"htsqc/internal/config"
	"htsqc/internal/dataprocessing"
	"htsqc/internal/files"
	"htsqc/internal/infrastructure"
	"htsqc/internal/render"
)

// Options configures a run.
type Options struct {
	RunID  string
	Config *config.Config
	Sink   files.Sink
	Logger *slog.Logger
	// Tracer and Metrics are optional.
	Tracer  trace.Tracer
	Metrics *infrastructure.RunMetrics
}

// Report is what a run produced.
type Report struct {
	RunID string
	// SpanTraceID is the trace id of the run span, empty when tracing is off.
	SpanTraceID string
	Load        dataprocessing.LoadReport
	Stats       analysis.StatsTable
	Renders     []render.RenderOutcome
	StatsFile   string
	Workbook    string
	Steps       []*StepState
}

// Run executes the QC pipeline once. The report is returned even when the
// run fails so the caller can still describe what happened.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.RunID != "" && infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, opts.RunID)
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	if opts.RunID == "" {
		opts.RunID = infrastructure.GetTraceID(ctx)
	}

	state := NewState(opts.RunID, opts.Config, opts.Sink, opts.Logger)
	state.Metrics = opts.Metrics
	state.Paths.LogPathResolution(state.Logger)

	err := NewRunner(opts.Tracer, DefaultSteps()...).Run(ctx, state)
	return newReport(state), err
}

func newReport(s *State) *Report {
	return &Report{
		RunID:       s.RunID,
		SpanTraceID: s.SpanTraceID,
		Load:        s.Load,
		Stats:       s.Stats,
		Renders:     s.Renders,
		StatsFile:   s.StatsFile,
		Workbook:    s.Workbook,
		Steps:       s.Steps,
	}
}

// SkippedHeatmaps returns the heatmaps that could not be drawn.
func (r *Report) SkippedHeatmaps() []render.RenderOutcome {
	var out []render.RenderOutcome
	for _, o := range r.Renders {
		if o.Plate > 0 && !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// FailedFigures returns the experiment-wide figures that could not be drawn.
func (r *Report) FailedFigures() []render.RenderOutcome {
	var out []render.RenderOutcome
	for _, o := range r.Renders {
		if o.Plate == 0 && !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Summary is the end-of-run digest logged as JSON.
type Summary struct {
	RunID           string         `json:"run_id"`
	SpanTraceID     string         `json:"otel_trace_id,omitempty"`
	InputError      string         `json:"input_error,omitempty"`
	PlatesLoaded    int            `json:"plates_loaded"`
	SkippedFiles    []SkippedEntry `json:"skipped_files"`
	SkippedHeatmaps []SkippedEntry `json:"skipped_heatmaps"`
	FailedFigures   []SkippedEntry `json:"failed_figures,omitempty"`
	FlaggedPlates   []SkippedEntry `json:"flagged_plates,omitempty"`
	ZFactor         MetricSummary  `json:"z_factor"`
	ZFactorRobust   MetricSummary  `json:"z_factor_robust"`
	StatsFile       string         `json:"stats_file,omitempty"`
	Workbook        string         `json:"workbook,omitempty"`
}

// SkippedEntry names something left out of the run and why.
type SkippedEntry struct {
	Name   string `json:"name"`
	Plate  int    `json:"plate,omitempty"`
	Reason string `json:"reason"`
}

// MetricSummary is the experiment-wide location of a QC metric. Undefined
// values are nil so the summary stays valid JSON.
type MetricSummary struct {
	Plates int      `json:"plates"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
}

// Summary builds the end-of-run digest.
func (r *Report) Summary() Summary {
	s := Summary{
		RunID:           r.RunID,
		SpanTraceID:     r.SpanTraceID,
		PlatesLoaded:    len(r.Load.Loaded()),
		SkippedFiles:    []SkippedEntry{},
		SkippedHeatmaps: []SkippedEntry{},
		ZFactor:         metricSummary(r.Stats.ZFactors()),
		ZFactorRobust:   metricSummary(r.Stats.RobustZFactors()),
		StatsFile:       r.StatsFile,
		Workbook:        r.Workbook,
	}
	if r.Load.DirErr != nil {
		s.InputError = r.Load.DirErr.Error()
	}
	for _, o := range r.Load.Skipped() {
		s.SkippedFiles = append(s.SkippedFiles, SkippedEntry{Name: o.File, Plate: o.Plate, Reason: o.Err.Error()})
	}
	for _, o := range r.SkippedHeatmaps() {
		s.SkippedHeatmaps = append(s.SkippedHeatmaps, SkippedEntry{Name: o.Path, Plate: o.Plate, Reason: o.Err.Error()})
	}
	for _, o := range r.FailedFigures() {
		s.FailedFigures = append(s.FailedFigures, SkippedEntry{Name: o.Figure, Reason: o.Err.Error()})
	}
	for _, p := range r.Stats.Flagged() {
		s.FlaggedPlates = append(s.FlaggedPlates, SkippedEntry{Name: p.Source, Plate: p.Plate, Reason: strings.Join(p.Flags, "; ")})
	}
	return s
}

func metricSummary(values []float64) MetricSummary {
	sum := analysis.Summarize(values)
	out := MetricSummary{Plates: sum.N}
	if sum.N > 0 {
		mean, median := analysis.Round(sum.Mean, 3), analysis.Round(sum.Median, 3)
		out.Mean, out.Median = &mean, &median
	}
	return out
}
