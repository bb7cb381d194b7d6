package render

import (
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"htsqc/internal/config"
	"htsqc/internal/plate"
)

// RawByPlate draws the distribution of raw absorbance per plate.
func (r *Renderer) RawByPlate(table plate.CompiledTable) error {
	groups := table.GroupBy(plate.ByPlate)
	sortNumeric(groups)
	return r.boxPlot(config.FigureRawByPlate, "Experiment-wide Raw Absorbances", "Plate", groups)
}

// RowEffect draws the distribution of raw absorbance per well row.
func (r *Renderer) RowEffect(table plate.CompiledTable) error {
	groups := table.GroupBy(plate.ByRow)
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Key) != len(groups[j].Key) {
			return len(groups[i].Key) < len(groups[j].Key)
		}
		return groups[i].Key < groups[j].Key
	})
	return r.boxPlot(config.FigureRowEffect, "Experiment-wide Row Effects", "Well Row", groups)
}

// ColEffect draws the distribution of raw absorbance per well column.
func (r *Renderer) ColEffect(table plate.CompiledTable) error {
	groups := table.GroupBy(plate.ByCol)
	sortNumeric(groups)
	return r.boxPlot(config.FigureColEffect, "Experiment-wide Column Effects", "Well Col", groups)
}

func (r *Renderer) boxPlot(figure, title, xLabel string, groups []plate.Group) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Raw Absorbance"

	width := boxWidth(len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		box, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(g.Values))
		if err != nil {
			return renderErr(figure, err)
		}
		box.FillColor = seriesColor(i)
		box.BoxStyle.Width = vg.Points(0.75)
		box.MedianStyle.Width = vg.Points(0.75)
		box.WhiskerStyle.Width = vg.Points(0.75)
		box.GlyphStyle.Radius = vg.Points(0.75)
		p.Add(box)
		names[i] = g.Key
	}
	p.NominalX(names...)

	return r.savePlot(p, r.paths.FigurePath(figure), figureWidth, figureHeight)
}

// boxWidth spreads n boxes over about 70% of the figure width.
func boxWidth(n int) vg.Length {
	if n < 1 {
		n = 1
	}
	w := figureWidth * 0.7 / vg.Length(n)
	if w > vg.Points(40) {
		w = vg.Points(40)
	}
	return w
}

// sortNumeric orders groups whose keys are integers by value.
func sortNumeric(groups []plate.Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, errA := strconv.Atoi(groups[i].Key)
		b, errB := strconv.Atoi(groups[j].Key)
		if errA != nil || errB != nil {
			return groups[i].Key < groups[j].Key
		}
		return a < b
	})
}
