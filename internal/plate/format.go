package plate

import (
	"strconv"

	apperrors "htsqc/internal/errors"
)

// Format is a supported microplate geometry.
type Format struct {
	Wells int
	Rows  int
	Cols  int
}

var (
	// Format96 is the 8×12 plate.
	Format96 = Format{Wells: 96, Rows: 8, Cols: 12}
	// Format384 is the 16×24 plate.
	Format384 = Format{Wells: 384, Rows: 16, Cols: 24}
)

// FormatForWells returns the plate format holding exactly n wells.
func FormatForWells(n int) (Format, error) {
	switch n {
	case Format384.Wells:
		return Format384, nil
	case Format96.Wells:
		return Format96, nil
	default:
		return Format{}, apperrors.NewPlateFormatError(n)
	}
}

// RowLabels returns the well row letters, A first.
func (f Format) RowLabels() []string {
	labels := make([]string, f.Rows)
	for i := range labels {
		labels[i] = string(rune('A' + i))
	}
	return labels
}

// ColLabels returns the well column numbers, 1 first.
func (f Format) ColLabels() []string {
	labels := make([]string, f.Cols)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

// Grid is a plate's measurements laid out as rows of columns.
type Grid struct {
	Format Format
	Cells  [][]float64
}

// Reshape lays a well vector out row-major: values[0] is A1, values[Cols] is B1.
// Only 96 and 384 well vectors are accepted.
func Reshape(values []float64) (Grid, error) {
	format, err := FormatForWells(len(values))
	if err != nil {
		return Grid{}, err
	}

	cells := make([][]float64, format.Rows)
	for r := range cells {
		cells[r] = make([]float64, format.Cols)
		copy(cells[r], values[r*format.Cols:(r+1)*format.Cols])
	}
	return Grid{Format: format, Cells: cells}, nil
}

// Flatten returns the grid's values in row-major order.
func (g Grid) Flatten() []float64 {
	out := make([]float64, 0, g.Format.Wells)
	for _, row := range g.Cells {
		out = append(out, row...)
	}
	return out
}

// At returns the value at zero-based row r and column c.
func (g Grid) At(r, c int) float64 {
	return g.Cells[r][c]
}
