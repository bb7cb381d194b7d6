package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Calculator derives the QC metrics of each plate from its control statistics.
type Calculator struct {
	positive string
	negative string
}

// NewCalculator creates a calculator for the given control labels.
func NewCalculator(positive, negative string) *Calculator {
	return &Calculator{positive: positive, negative: negative}
}

// Apply returns a copy of t with signal-to-background, Z' and robust Z'
// filled in and undefined results flagged.
func (c *Calculator) Apply(t StatsTable) StatsTable {
	out := StatsTable{
		ControlTypes: append([]string(nil), t.ControlTypes...),
		Plates:       make([]PlateStats, len(t.Plates)),
	}

	for i, p := range t.Plates {
		p.Flags = append([]string(nil), p.Flags...)

		var missing bool
		for _, label := range []string{c.positive, c.negative} {
			if !p.Has(label) {
				p.Flags = append(p.Flags, fmt.Sprintf("no %s wells", label))
				missing = true
			}
		}

		if missing {
			p.SignalToBackground = math.NaN()
			p.ZFactor = math.NaN()
			p.ZFactorRobust = math.NaN()
			out.Plates[i] = p
			continue
		}

		pos, neg := p.Controls[c.positive], p.Controls[c.negative]

		var flag string
		p.SignalToBackground, flag = SignalToBackground(pos.Mean, neg.Mean)
		p.Flags = appendFlag(p.Flags, ColumnSignalToBg, flag)

		p.ZFactor, flag = ZFactor(pos.Mean, neg.Mean, pos.Std, neg.Std)
		p.Flags = appendFlag(p.Flags, ColumnZFactor, flag)

		p.ZFactorRobust, flag = RobustZFactor(pos.Median, neg.Median, pos.MAD, neg.MAD)
		p.Flags = appendFlag(p.Flags, ColumnZFactorRobust, flag)

		out.Plates[i] = p
	}

	return out
}

func appendFlag(flags []string, metric, reason string) []string {
	if reason == "" {
		return flags
	}
	return append(flags, metric+" undefined: "+reason)
}

// SignalToBackground is mean(NEG) / mean(POS), rounded to 2 decimals. The
// second return explains a NaN result and is empty otherwise. Equal means
// carry no separation, so the ratio is undefined like Z'.
func SignalToBackground(meanPos, meanNeg float64) (float64, string) {
	if meanPos == 0 {
		return math.NaN(), "mean POS is zero"
	}
	if meanNeg == meanPos {
		return math.NaN(), "mean NEG equals mean POS"
	}
	return finite(Round(meanNeg/meanPos, 2))
}

// ZFactor is 1 - 3(std POS + std NEG) / (mean NEG - mean POS), rounded to
// 3 decimals.
func ZFactor(meanPos, meanNeg, stdPos, stdNeg float64) (float64, string) {
	if meanNeg == meanPos {
		return math.NaN(), "mean NEG equals mean POS"
	}
	return finite(Round(1-3*(stdPos+stdNeg)/(meanNeg-meanPos), 3))
}

// RobustZFactor is 1 - 3(mad POS + mad NEG) / (median NEG - median POS),
// rounded to 3 decimals.
func RobustZFactor(medianPos, medianNeg, madPos, madNeg float64) (float64, string) {
	if medianNeg == medianPos {
		return math.NaN(), "median NEG equals median POS"
	}
	return finite(Round(1-3*(madPos+madNeg)/(medianNeg-medianPos), 3))
}

func finite(v float64) (float64, string) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), "non-finite result"
	}
	return v, ""
}

// Round rounds half to even at the given number of decimals.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*scale) / scale
}

// Summary is the experiment-wide location of a per-plate metric.
type Summary struct {
	N      int
	Mean   float64
	Median float64
}

// Summarize returns the mean and median of values, ignoring NaN. Both are
// NaN when no value is defined.
func Summarize(values []float64) Summary {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return Summary{Mean: math.NaN(), Median: math.NaN()}
	}
	return Summary{
		N:      len(defined),
		Mean:   stat.Mean(defined, nil),
		Median: Median(defined),
	}
}
