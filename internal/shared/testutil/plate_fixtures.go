package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// MetadataRows is the number of instrument header lines in a plate export.
const MetadataRows = 5

// Well is one row of a plate-reader export.
type Well struct {
	Row   string
	Col   int
	Value float64
}

// ControlEntry is one row of a control layout file.
type ControlEntry struct {
	Row  string
	Col  int
	Type string
}

// plateShape returns the (rows, cols) a fixture of n wells is laid out on.
// Unknown counts are laid out 12 wide so malformed plates can be produced.
func plateShape(n int) (int, int) {
	switch n {
	case 384:
		return 16, 24
	case 96:
		return 8, 12
	default:
		return (n + 11) / 12, 12
	}
}

// PlateWells builds n wells in row-major order with values from fn.
func PlateWells(n int, fn func(row, col int) float64) []Well {
	rows, cols := plateShape(n)
	wells := make([]Well, 0, n)
	for r := 0; r < rows && len(wells) < n; r++ {
		for c := 0; c < cols && len(wells) < n; c++ {
			wells = append(wells, Well{
				Row:   string(rune('A' + r)),
				Col:   c + 1,
				Value: fn(r, c),
			})
		}
	}
	return wells
}

// UniformPlate builds n wells that all read value.
func UniformPlate(n int, value float64) []Well {
	return PlateWells(n, func(int, int) float64 { return value })
}

// EdgeControls puts POS controls in column 1 and NEG controls in column 2 of
// every row of an n-well plate.
func EdgeControls(n int) []ControlEntry {
	rows, _ := plateShape(n)
	entries := make([]ControlEntry, 0, rows*2)
	for r := 0; r < rows; r++ {
		row := string(rune('A' + r))
		entries = append(entries,
			ControlEntry{Row: row, Col: 1, Type: "POS"},
			ControlEntry{Row: row, Col: 2, Type: "NEG"},
		)
	}
	return entries
}

// WritePlateCSV writes wells as a plate-reader export (metadata block, header,
// one line per well) and returns the file path.
func WritePlateCSV(t *testing.T, dir, name string, wells []Well) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create plate fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	meta := [][]string{
		{"Plate Reader Export"},
		{"Instrument", "Spectramax"},
		{"Protocol", "Absorbance 450nm"},
		{"File", name},
		{""},
	}
	for i := 0; i < MetadataRows; i++ {
		_ = w.Write(meta[i])
	}
	_ = w.Write([]string{"Well Row", "Well Col", "Content", "Raw Data (450)"})
	for _, well := range wells {
		_ = w.Write([]string{
			well.Row,
			strconv.Itoa(well.Col),
			fmt.Sprintf("Sample %s%d", well.Row, well.Col),
			strconv.FormatFloat(well.Value, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("write plate fixture: %v", err)
	}
	return path
}

// WriteControlLayout writes a control_locations.csv into dir and returns its path.
func WriteControlLayout(t *testing.T, dir string, entries []ControlEntry) string {
	t.Helper()

	path := filepath.Join(dir, "control_locations.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create control layout: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"Well Row", "Well Col", "COMP_TYPE"})
	for _, e := range entries {
		_ = w.Write([]string{e.Row, strconv.Itoa(e.Col), e.Type})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("write control layout: %v", err)
	}
	return path
}
