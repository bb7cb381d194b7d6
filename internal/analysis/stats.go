package analysis

import (
	"math"
	"sort"
)

// Metric names, in column order.
const (
	MetricMean   = "mean"
	MetricStd    = "std"
	MetricMedian = "median"
	MetricMAD    = "mad"
)

// Metrics is the order metric columns appear in for each control type.
var Metrics = []string{MetricMean, MetricStd, MetricMedian, MetricMAD}

// Derived column names.
const (
	ColumnPlate         = "Plate"
	ColumnSignalToBg    = "signal_to_bg"
	ColumnZFactor       = "Z_factor"
	ColumnZFactorRobust = "Z_factor_robust"
	ColumnQCFlags       = "qc_flags"
)

// ControlStats describes the absorbances of one control type on one plate.
type ControlStats struct {
	N      int
	Mean   float64
	Std    float64
	Median float64
	MAD    float64
}

// Value returns the named metric.
func (s ControlStats) Value(metric string) float64 {
	switch metric {
	case MetricMean:
		return s.Mean
	case MetricStd:
		return s.Std
	case MetricMedian:
		return s.Median
	case MetricMAD:
		return s.MAD
	default:
		return math.NaN()
	}
}

// PlateStats is one row of the statistics table.
type PlateStats struct {
	Plate    int
	Source   string
	Controls map[string]ControlStats

	SignalToBackground float64
	ZFactor            float64
	ZFactorRobust      float64
	Flags              []string
}

// Value returns a metric for a control type, NaN if the plate has no wells
// of that type.
func (p PlateStats) Value(metric, control string) float64 {
	s, ok := p.Controls[control]
	if !ok || s.N == 0 {
		return math.NaN()
	}
	return s.Value(metric)
}

// Has reports whether the plate has at least one well of the control type.
func (p PlateStats) Has(control string) bool {
	s, ok := p.Controls[control]
	return ok && s.N > 0
}

// StatsTable is the wide per-plate table: one row per plate, one column per
// (metric, control type) pair.
type StatsTable struct {
	// ControlTypes is sorted lexically and always includes the positive and
	// negative labels.
	ControlTypes []string
	Plates       []PlateStats
}

// ColumnName formats the column for a metric and control type, e.g. "mean NEG".
func ColumnName(metric, control string) string {
	return metric + " " + control
}

// StatColumns returns the aggregate column names: metrics in Metrics order,
// control types sorted within each metric.
func (t StatsTable) StatColumns() []string {
	cols := make([]string, 0, len(Metrics)*len(t.ControlTypes))
	for _, m := range Metrics {
		for _, c := range t.ControlTypes {
			cols = append(cols, ColumnName(m, c))
		}
	}
	return cols
}

// Columns returns the full documented header: Plate, the aggregate columns,
// then signal_to_bg, Z_factor, Z_factor_robust and qc_flags.
func (t StatsTable) Columns() []string {
	cols := []string{ColumnPlate}
	cols = append(cols, t.StatColumns()...)
	return append(cols, ColumnSignalToBg, ColumnZFactor, ColumnZFactorRobust, ColumnQCFlags)
}

// Column returns one aggregate column over all plates, e.g. "median NEG".
func (t StatsTable) Column(metric, control string) []float64 {
	out := make([]float64, len(t.Plates))
	for i, p := range t.Plates {
		out[i] = p.Value(metric, control)
	}
	return out
}

// PlateNumbers returns the plate numbers in table order.
func (t StatsTable) PlateNumbers() []int {
	out := make([]int, len(t.Plates))
	for i, p := range t.Plates {
		out[i] = p.Plate
	}
	return out
}

// Plate returns the row of plate n.
func (t StatsTable) Plate(n int) (PlateStats, bool) {
	i := sort.Search(len(t.Plates), func(i int) bool { return t.Plates[i].Plate >= n })
	if i < len(t.Plates) && t.Plates[i].Plate == n {
		return t.Plates[i], true
	}
	return PlateStats{}, false
}

// ZFactors returns the Z' column.
func (t StatsTable) ZFactors() []float64 {
	out := make([]float64, len(t.Plates))
	for i, p := range t.Plates {
		out[i] = p.ZFactor
	}
	return out
}

// RobustZFactors returns the robust Z' column.
func (t StatsTable) RobustZFactors() []float64 {
	out := make([]float64, len(t.Plates))
	for i, p := range t.Plates {
		out[i] = p.ZFactorRobust
	}
	return out
}

// Flagged returns the plates with at least one QC flag.
func (t StatsTable) Flagged() []PlateStats {
	var out []PlateStats
	for _, p := range t.Plates {
		if len(p.Flags) > 0 {
			out = append(out, p)
		}
	}
	return out
}
