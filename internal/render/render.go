package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"htsqc/internal/analysis"
	"htsqc/internal/config"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
	"htsqc/internal/plate"
)

// Default figure size, matching a 6.4x4.8 inch canvas.
const (
	figureWidth  = 6.4 * vg.Inch
	figureHeight = 4.8 * vg.Inch
)

// Options holds the fixed visual parameters.
type Options struct {
	DPI             int
	RegressionYMax  float64
	ZFactorCutoff   float64
	ConfidenceLevel float64
	Heatmaps        bool
	Positive        string
	Negative        string
}

// OptionsFromConfig builds render options from the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DPI:             cfg.Render.DPI,
		RegressionYMax:  cfg.Render.RegressionYMax,
		ZFactorCutoff:   cfg.Render.ZFactorCutoff,
		ConfidenceLevel: cfg.Render.ConfidenceLevel,
		Heatmaps:        cfg.Render.Heatmaps,
		Positive:        cfg.Input.PositiveLabel,
		Negative:        cfg.Input.NegativeLabel,
	}
}

// RenderOutcome is the result of drawing one figure.
type RenderOutcome struct {
	Figure string
	Path   string
	// Plate is set for heatmaps, 0 for experiment-wide figures.
	Plate int
	Err   error
}

// OK reports whether the figure was written.
func (o RenderOutcome) OK() bool {
	return o.Err == nil
}

// Renderer draws all figures of a run.
type Renderer struct {
	sink   files.Sink
	paths  *config.Paths
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a renderer writing figures through sink at the
// locations in paths.
func NewRenderer(sink files.Sink, paths *config.Paths, opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DPI <= 0 {
		opts.DPI = 200
	}
	return &Renderer{sink: sink, paths: paths, opts: opts, logger: logger}
}

// RenderAll draws the seven experiment-wide figures and, if enabled, one
// heatmap per plate. An empty table produces no figures.
func (r *Renderer) RenderAll(ctx context.Context, table plate.CompiledTable, stats analysis.StatsTable) []RenderOutcome {
	if table.Len() == 0 {
		r.logger.InfoContext(ctx, "No plates loaded, skipping figures")
		return nil
	}

	figures := []struct {
		name string
		draw func() error
	}{
		{config.FigureRawByPlate, func() error { return r.RawByPlate(table) }},
		{config.FigureRowEffect, func() error { return r.RowEffect(table) }},
		{config.FigureColEffect, func() error { return r.ColEffect(table) }},
		{config.FigureByControl, func() error { return r.ByControl(table) }},
		{config.FigureRegression, func() error { return r.Regression(stats) }},
		{config.FigureZFactor, func() error { return r.ZFactorBar(stats) }},
		{config.FigureZFactorRobust, func() error { return r.RobustZFactorBar(stats) }},
	}

	outcomes := make([]RenderOutcome, 0, len(figures)+len(stats.Plates))
	for _, fig := range figures {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, RenderOutcome{Figure: fig.name, Path: r.paths.FigurePath(fig.name), Err: err})
			continue
		}
		outcome := RenderOutcome{Figure: fig.name, Path: r.paths.FigurePath(fig.name), Err: fig.draw()}
		r.log(ctx, outcome)
		outcomes = append(outcomes, outcome)
	}

	if r.opts.Heatmaps {
		outcomes = append(outcomes, r.Heatmaps(ctx, table, stats)...)
	}
	return outcomes
}

func (r *Renderer) log(ctx context.Context, o RenderOutcome) {
	attrs := []any{slog.String("figure", o.Figure), slog.String("path", r.sink.Location(o.Path))}
	if o.Plate > 0 {
		attrs = append(attrs, slog.Int("plate", o.Plate))
	}
	if o.Err != nil {
		r.logger.WarnContext(ctx, "Figure not written", append(attrs, slog.String("error", o.Err.Error()))...)
		return
	}
	r.logger.DebugContext(ctx, "Figure written", attrs...)
}

// savePlot draws p on a w x h canvas at the configured DPI and writes it as
// PNG to path.
func (r *Renderer) savePlot(p *plot.Plot, path string, w, h vg.Length) error {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.opts.DPI))
	if err := drawSafely(func() { p.Draw(draw.New(c)) }); err != nil {
		return err
	}
	return r.writePNG(c, path)
}

// drawSafely turns a panic inside a plotter into an error; gonum/plot
// panics on some degenerate ranges.
func drawSafely(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewRenderError(fmt.Sprintf("plot drawing failed: %v", rec), nil)
		}
	}()
	fn()
	return nil
}

func (r *Renderer) writePNG(c *vgimg.Canvas, path string) error {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return apperrors.NewRenderError("failed to encode figure", err).WithContext("path", path)
	}
	return r.writeFile(path, buf.Bytes())
}

// writeFile opens the sink only once the figure is fully encoded, so a
// failed render never leaves a partial file behind.
func (r *Renderer) writeFile(path string, data []byte) (err error) {
	out, err := r.sink.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create figure", err).WithContext("path", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = apperrors.NewStorageError("failed to close figure", cerr).WithContext("path", path)
		}
	}()

	if _, err := out.Write(data); err != nil {
		return apperrors.NewStorageError("failed to write figure", err).WithContext("path", path)
	}
	return nil
}

// finiteOr replaces undefined values, which plotters reject.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func renderErr(figure string, err error) error {
	return apperrors.NewRenderError(fmt.Sprintf("failed to draw %s", figure), err)
}
