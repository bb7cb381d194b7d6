package render

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"htsqc/internal/analysis"
	"htsqc/internal/config"
)

// ZFactorBar draws Z' per plate against the acceptance cutoff.
func (r *Renderer) ZFactorBar(stats analysis.StatsTable) error {
	return r.zFactorBar(config.FigureZFactor, zFactorLabels{
		title:   "Z' factor per plate",
		axis:    "Z' Factor",
		summary: "Z' factor",
	}, stats.PlateNumbers(), stats.ZFactors())
}

// RobustZFactorBar draws robust Z' per plate against the acceptance cutoff.
func (r *Renderer) RobustZFactorBar(stats analysis.StatsTable) error {
	return r.zFactorBar(config.FigureZFactorRobust, zFactorLabels{
		title:   "Robust Z' factor per plate",
		axis:    "Robust Z' Factor",
		summary: "robust Z' factor",
	}, stats.PlateNumbers(), stats.RobustZFactors())
}

type zFactorLabels struct {
	title   string
	axis    string
	summary string
}

func (r *Renderer) zFactorBar(figure string, labels zFactorLabels, plates []int, z []float64) error {
	if len(z) == 0 {
		return renderErr(figure, fmt.Errorf("no plates"))
	}

	p := plot.New()
	p.Title.Text = labels.title
	p.X.Label.Text = "Plate"
	p.Y.Label.Text = labels.axis

	// undefined plates show as an empty slot
	values := make(plotter.Values, len(z))
	lo, hi := 0.0, 1.0
	for i, v := range z {
		values[i] = finiteOr(v, 0)
		lo = math.Min(lo, values[i])
		hi = math.Max(hi, values[i])
	}

	bars, err := plotter.NewBarChart(values, plateBarWidth(len(z)))
	if err != nil {
		return renderErr(figure, err)
	}
	bars.Color = seriesColor(0)
	bars.LineStyle.Width = 0
	p.Add(bars)

	cutoff := r.opts.ZFactorCutoff
	line := plotter.NewFunction(func(float64) float64 { return cutoff })
	line.XMin = -0.5
	line.XMax = float64(len(z)) - 0.5
	line.Color = grey
	line.Width = vg.Points(0.75)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)

	hi = math.Max(hi, cutoff)
	lo = math.Min(lo, cutoff)
	top := hi + 0.15*(hi-lo)

	summary := analysis.Summarize(z)
	note, err := plotter.NewLabels(plotter.XYLabels{
		XYs: plotter.XYs{{X: -0.45, Y: top - 0.02*(top-lo)}},
		Labels: []string{fmt.Sprintf("Average %s = %s, Median %s = %s",
			labels.summary, annotationValue(summary.Mean), labels.summary, annotationValue(summary.Median))},
	})
	if err != nil {
		return renderErr(figure, err)
	}
	note.TextStyle[0].Color = grey
	note.TextStyle[0].YAlign = text.YTop
	p.Add(note)

	names := make([]string, len(plates))
	for i, n := range plates {
		names[i] = strconv.Itoa(n)
	}
	p.NominalX(names...)
	p.X.Min = -0.5
	p.X.Max = float64(len(z)) - 0.5
	p.Y.Min = lo
	p.Y.Max = top

	return r.savePlot(p, r.paths.FigurePath(figure), figureWidth, figureHeight)
}

// plateBarWidth sizes n bars to fill most of the figure width.
func plateBarWidth(n int) vg.Length {
	w := figureWidth * 0.6 / vg.Length(n)
	if w > vg.Points(60) {
		w = vg.Points(60)
	}
	return w
}

// annotationValue formats a summary to two decimals, "nan" when undefined.
func annotationValue(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(analysis.Round(v, 2), 'f', -1, 64)
}
