package plate

import (
	"sort"
	"strconv"
)

// Reading is one well of one plate, joined with its control type.
type Reading struct {
	Plate       int
	Source      string
	Row         string
	Col         int
	Absorbance  float64
	ControlType string
}

// CompiledTable is the long table of every well of every loaded plate, in
// load order: plates ascending, wells in file order within a plate.
type CompiledTable struct {
	Readings []Reading
}

// Append returns a table with rows added after the existing readings.
func (t CompiledTable) Append(rows ...Reading) CompiledTable {
	out := make([]Reading, 0, len(t.Readings)+len(rows))
	out = append(out, t.Readings...)
	out = append(out, rows...)
	return CompiledTable{Readings: out}
}

// Len returns the number of readings.
func (t CompiledTable) Len() int {
	return len(t.Readings)
}

// Plates returns the distinct plate numbers in ascending order.
func (t CompiledTable) Plates() []int {
	seen := make(map[int]bool)
	var plates []int
	for _, r := range t.Readings {
		if !seen[r.Plate] {
			seen[r.Plate] = true
			plates = append(plates, r.Plate)
		}
	}
	sort.Ints(plates)
	return plates
}

// Plate returns the readings of one plate in file order.
func (t CompiledTable) Plate(n int) []Reading {
	var out []Reading
	for _, r := range t.Readings {
		if r.Plate == n {
			out = append(out, r)
		}
	}
	return out
}

// Source returns the file a plate was loaded from, or "" if unknown.
func (t CompiledTable) Source(plate int) string {
	for _, r := range t.Readings {
		if r.Plate == plate {
			return r.Source
		}
	}
	return ""
}

// ControlTypes returns the distinct control labels sorted lexically.
func (t CompiledTable) ControlTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range t.Readings {
		if !seen[r.ControlType] {
			seen[r.ControlType] = true
			types = append(types, r.ControlType)
		}
	}
	sort.Strings(types)
	return types
}

// Group is a labelled set of absorbances.
type Group struct {
	Key    string
	Values []float64
}

// GroupBy partitions absorbances by key, preserving first-seen key order.
func (t CompiledTable) GroupBy(key func(Reading) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range t.Readings {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Values = append(groups[i].Values, r.Absorbance)
	}
	return groups
}

// Absorbances returns a plate's values in file order.
func Absorbances(readings []Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Absorbance
	}
	return out
}

// ByPlate, ByRow and ByCol are grouping keys for GroupBy.
func ByPlate(r Reading) string { return strconv.Itoa(r.Plate) }
func ByRow(r Reading) string   { return r.Row }
func ByCol(r Reading) string   { return strconv.Itoa(r.Col) }
