package exporter

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat formats a float64 value for CSV output at full precision.
// Undefined values are written as NaN.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatFlags joins QC flags into one cell
func formatFlags(flags []string) string {
	return strings.Join(flags, "; ")
}

// cellValue converts a float to a spreadsheet cell value; undefined values
// become empty cells so the column stays numeric
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
