package render

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"htsqc/internal/analysis"
	"htsqc/internal/plate"
)

const (
	heatmapColors = 255
	colorbarWidth = 1.1 * vg.Inch
	heatmapFigure = "heatmap"
)

// plateGrid adapts a reshaped plate to plotter.GridXYZ with row A drawn
// at the top.
type plateGrid struct {
	plate.Grid
}

func (g plateGrid) Dims() (c, r int) { return g.Format.Cols, g.Format.Rows }
func (g plateGrid) Z(c, r int) float64 { return g.At(r, c) }
func (g plateGrid) X(c int) float64 { return float64(c) }
func (g plateGrid) Y(r int) float64 { return float64(g.Format.Rows - 1 - r) }

// HeatmapUpperLimit is the colour scale maximum shared by all heatmaps:
// the median over plates of the per-plate NEG median.
func HeatmapUpperLimit(stats analysis.StatsTable, negative string) float64 {
	return analysis.Summarize(stats.Column(analysis.MetricMedian, negative)).Median
}

// Heatmaps draws one heatmap per plate. Plates whose well count is not a
// known format are reported and skipped; the other plates are still drawn.
func (r *Renderer) Heatmaps(ctx context.Context, table plate.CompiledTable, stats analysis.StatsTable) []RenderOutcome {
	vmax := HeatmapUpperLimit(stats, r.opts.Negative)

	var outcomes []RenderOutcome
	for _, n := range table.Plates() {
		outcome := RenderOutcome{Figure: heatmapFigure, Path: r.paths.HeatmapPath(n), Plate: n}
		if err := ctx.Err(); err != nil {
			outcome.Err = err
		} else {
			outcome.Err = r.Heatmap(n, table.Source(n), plate.Absorbances(table.Plate(n)), vmax)
		}
		r.log(ctx, outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Heatmap draws the raw absorbances of plate n in file order, laid out
// row-major, with the colour scale running from the plate minimum to vmax.
func (r *Renderer) Heatmap(n int, source string, values []float64, vmax float64) error {
	grid, err := plate.Reshape(values)
	if err != nil {
		return err
	}
	g := plateGrid{grid}

	lo, hi := scaleLimits(values, vmax)
	cmap := palette.Reverse(moreland.SmoothBlueRed())
	cmap.SetMin(lo)
	cmap.SetMax(hi)
	pal := cmap.Palette(heatmapColors)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(g, pal)
	hm.Min = lo
	hm.Max = hi
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s\nPlate %d", source, n)
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"
	p.Add(hm)
	p.X.Padding = 0
	p.Y.Padding = 0
	p.X.Min, p.X.Max = -0.5, float64(grid.Format.Cols)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(grid.Format.Rows)-0.5

	var xticks, yticks []plot.Tick
	for c, label := range grid.Format.ColLabels() {
		xticks = append(xticks, plot.Tick{Value: g.X(c), Label: label})
	}
	for row, label := range grid.Format.RowLabels() {
		yticks = append(yticks, plot.Tick{Value: g.Y(row), Label: label})
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true})
	bar.HideX()
	bar.Y.Padding = 0
	bar.Y.Label.Text = "Raw Absorbance"
	bar.Title.Text = "\n"

	c := vgimg.NewWith(vgimg.UseWH(figureWidth, figureHeight), vgimg.UseDPI(r.opts.DPI))
	dc := draw.New(c)
	err = drawSafely(func() {
		p.Draw(draw.Crop(dc, 0, -colorbarWidth, 0, 0))
		bar.Draw(draw.Crop(dc, figureWidth-colorbarWidth+vg.Millimeter, 0, 0, 0))
	})
	if err != nil {
		return err
	}
	return r.writePNG(c, r.paths.HeatmapPath(n))
}

// scaleLimits returns the colour range for one plate. The lower bound is
// the plate minimum; the upper bound is vmax, or the plate maximum when
// vmax is undefined or not above the minimum.
func scaleLimits(values []float64, vmax float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) {
		return 0, 1
	}
	if !math.IsNaN(vmax) && vmax > lo {
		hi = vmax
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
