package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"htsqc/internal/analysis"
	"htsqc/internal/config"
	apperrors "htsqc/internal/errors"
)

// pointStyle renders points only, no connecting line.
func pointStyle(i int) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    chartColor(i),
	}
}

// Regression plots mean NEG and mean POS per plate, each with its
// least-squares line, on a fixed absorbance axis.
func (r *Renderer) Regression(stats analysis.StatsTable) error {
	const figure = config.FigureRegression

	var series []chart.Series
	for i, label := range []string{r.opts.Negative, r.opts.Positive} {
		name := analysis.ColumnName(analysis.MetricMean, label)

		var xs, ys []float64
		for _, p := range stats.Plates {
			v := p.Value(analysis.MetricMean, label)
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, float64(p.Plate))
			ys = append(ys, v)
		}
		if len(xs) == 0 {
			continue
		}

		points := chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: pointStyle(i)}
		series = append(series, points)

		// a fit needs two distinct plates
		if len(xs) >= 2 {
			series = append(series, &chart.LinearRegressionSeries{
				Name:        name + " fit",
				InnerSeries: points,
				Style: chart.Style{
					StrokeColor: chartColor(i),
					StrokeWidth: 1.5,
				},
			})
		}
	}

	if len(series) == 0 {
		return apperrors.NewRenderError("no plate has control means to plot", nil).WithContext("figure", figure)
	}

	dpi := float64(r.opts.DPI)
	ch := chart.Chart{
		Title:  "Regression plot of control means per plate",
		Width:  int(6.4 * dpi),
		Height: int(4.8 * dpi),
		DPI:    dpi,
		XAxis: chart.XAxis{
			Name:  "Plate",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(lastPlate(stats)) + 0.5},
			Ticks: plateTicks(stats),
		},
		YAxis: chart.YAxis{
			Name:  "Raw Absorbance",
			Range: &chart.ContinuousRange{Min: 0, Max: r.opts.RegressionYMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return strconv.FormatFloat(f, 'f', 0, 64)
				}
				return fmt.Sprint(v)
			},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return renderErr(figure, err)
	}
	return r.writeFile(r.paths.FigurePath(figure), buf.Bytes())
}

func lastPlate(stats analysis.StatsTable) int {
	if len(stats.Plates) == 0 {
		return 1
	}
	return stats.Plates[len(stats.Plates)-1].Plate
}

// plateTicks labels every plate. go-chart takes the axis range from the
// tick span, so unlabeled ticks pin the half-plate margins and keep a
// single-plate range from collapsing.
func plateTicks(stats analysis.StatsTable) []chart.Tick {
	ticks := make([]chart.Tick, 0, len(stats.Plates)+2)
	ticks = append(ticks, chart.Tick{Value: 0.5})
	for _, p := range stats.Plates {
		ticks = append(ticks, chart.Tick{Value: float64(p.Plate), Label: strconv.Itoa(p.Plate)})
	}
	return append(ticks, chart.Tick{Value: float64(lastPlate(stats)) + 0.5})
}
