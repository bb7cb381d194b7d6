package render

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"htsqc/internal/config"
	"htsqc/internal/plate"
)

// groupSpan is the share of each category slot the plate bars fill.
const groupSpan = 0.8

// errorPoints pairs bar tops with their confidence intervals.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// ByControl draws mean raw absorbance per control type with one bar per
// plate and confidence-interval whiskers.
func (r *Renderer) ByControl(table plate.CompiledTable) error {
	const figure = config.FigureByControl

	types := table.ControlTypes()
	plates := table.Plates()

	p := plot.New()
	p.Title.Text = "Raw absorbances by control type"
	p.X.Label.Text = "Compound Type"
	p.Y.Label.Text = "Raw Absorbance"
	p.Legend.Top = true
	p.Legend.Left = false

	values := make(map[int]map[string][]float64, len(plates))
	for _, rd := range table.Readings {
		if values[rd.Plate] == nil {
			values[rd.Plate] = make(map[string][]float64)
		}
		values[rd.Plate][rd.ControlType] = append(values[rd.Plate][rd.ControlType], rd.Absorbance)
	}

	barWidth := groupSpan / float64(len(plates))
	var whiskers errorPoints

	for j, n := range plates {
		var legendBar *plotter.Polygon
		for i, label := range types {
			v := values[n][label]
			if len(v) == 0 {
				continue
			}
			mean := stat.Mean(v, nil)

			x0 := float64(i) - groupSpan/2 + float64(j)*barWidth
			bar, err := plotter.NewPolygon(plotter.XYs{
				{X: x0, Y: 0},
				{X: x0 + barWidth, Y: 0},
				{X: x0 + barWidth, Y: mean},
				{X: x0, Y: mean},
			})
			if err != nil {
				return renderErr(figure, err)
			}
			bar.Color = seriesColor(j)
			bar.LineStyle.Width = 0
			p.Add(bar)
			if legendBar == nil {
				legendBar = bar
			}

			if half := confidenceHalfWidth(v, r.opts.ConfidenceLevel); !math.IsNaN(half) {
				whiskers.XYs = append(whiskers.XYs, plotter.XY{X: x0 + barWidth/2, Y: mean})
				whiskers.YErrors = append(whiskers.YErrors, struct{ Low, High float64 }{half, half})
			}
		}
		if legendBar != nil {
			p.Legend.Add(strconv.Itoa(n), legendBar)
		}
	}

	if len(whiskers.XYs) > 0 {
		bars, err := plotter.NewYErrorBars(whiskers)
		if err != nil {
			return renderErr(figure, err)
		}
		bars.LineStyle.Width = vg.Points(0.6)
		bars.CapWidth = vg.Points(3)
		p.Add(bars)
	}

	p.NominalX(types...)
	p.X.Min = -0.5
	p.X.Max = float64(len(types)) - 0.5

	return r.savePlot(p, r.paths.FigurePath(figure), 12*vg.Inch, 3*vg.Inch)
}

// confidenceHalfWidth returns the half width of the Student-t confidence
// interval of the mean, NaN for fewer than two values.
func confidenceHalfWidth(values []float64, level float64) float64 {
	n := len(values)
	if n < 2 || level <= 0 || level >= 1 {
		return math.NaN()
	}
	sd := stat.StdDev(values, nil)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(0.5 + level/2)
	return t * sd / math.Sqrt(float64(n))
}
