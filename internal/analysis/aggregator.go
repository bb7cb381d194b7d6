package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"htsqc/internal/plate"
)

// Aggregator groups compiled readings by plate and control type.
type Aggregator struct {
	positive string
	negative string
}

// NewAggregator creates an aggregator that always reports the given
// positive and negative control columns.
func NewAggregator(positive, negative string) *Aggregator {
	return &Aggregator{positive: positive, negative: negative}
}

// Aggregate computes mean, sample standard deviation, median and median
// absolute deviation of absorbance per (plate, control type). Metric fields
// are left NaN; see Calculator.
func (a *Aggregator) Aggregate(table plate.CompiledTable) StatsTable {
	types := table.ControlTypes()
	for _, required := range []string{a.positive, a.negative} {
		if i := sort.SearchStrings(types, required); i == len(types) || types[i] != required {
			types = append(types, required)
			sort.Strings(types)
		}
	}

	out := StatsTable{ControlTypes: types}
	for _, n := range table.Plates() {
		readings := table.Plate(n)

		byType := make(map[string][]float64)
		for _, r := range readings {
			byType[r.ControlType] = append(byType[r.ControlType], r.Absorbance)
		}

		row := PlateStats{
			Plate:              n,
			Source:             readings[0].Source,
			Controls:           make(map[string]ControlStats, len(byType)),
			SignalToBackground: math.NaN(),
			ZFactor:            math.NaN(),
			ZFactorRobust:      math.NaN(),
		}
		for label, values := range byType {
			row.Controls[label] = Describe(values)
		}
		out.Plates = append(out.Plates, row)
	}

	return out
}

// Describe computes the summary statistics of one group. The standard
// deviation uses n-1 and is NaN for a single value; MAD is unscaled.
func Describe(values []float64) ControlStats {
	s := ControlStats{
		N:      len(values),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Median: math.NaN(),
		MAD:    math.NaN(),
	}
	if len(values) == 0 {
		return s
	}

	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	s.Median = Median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - s.Median)
	}
	s.MAD = Median(deviations)

	return s
}

// Median returns the middle value, averaging the two middle values of an
// even-length input. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
