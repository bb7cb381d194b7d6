package dataprocessing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "htsqc/internal/errors"
)

const (
	wellRowHeader = "well row"
	wellColHeader = "well col"
	controlHeader = "comp_type"
)

// RawWell is one data row of a plate-reader export before the control join.
type RawWell struct {
	Row        string
	Col        int
	Absorbance float64
}

// ParseOptions describes the export layout of the plate reader.
type ParseOptions struct {
	// HeaderRows is the number of instrument metadata lines before the header.
	HeaderRows int
	// ValueColumn is the zero-based index of the raw absorbance column.
	ValueColumn int
}

// ParseResult is the content of one plate export.
type ParseResult struct {
	Wells []RawWell
	// Missing counts data rows whose absorbance cell was empty or not a
	// finite number. Those rows are not part of Wells, so the plate no
	// longer has a full well count.
	Missing int
}

// ParsePlateCSV reads a plate-reader export. The metadata block is skipped by
// physical line, since it may contain blank lines that a CSV reader would
// silently drop.
func ParsePlateCSV(r io.Reader, opts ParseOptions) (ParseResult, error) {
	br := bufio.NewReader(r)
	for i := 0; i < opts.HeaderRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return ParseResult{}, apperrors.NewParsingError(
					fmt.Sprintf("file ended inside the %d-line metadata block", opts.HeaderRows), nil)
			}
			return ParseResult{}, apperrors.NewParsingError("failed to read metadata block", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{}, apperrors.NewParsingError("missing header row", nil)
		}
		return ParseResult{}, apperrors.NewParsingError("failed to read header row", err)
	}

	cols := findColumns(header, 0, 1)
	if opts.ValueColumn >= len(header) {
		return ParseResult{}, apperrors.NewParsingError(
			fmt.Sprintf("header has %d columns, absorbance expected in column %d", len(header), opts.ValueColumn+1), nil)
	}

	var result ParseResult
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return ParseResult{}, apperrors.NewParsingError(fmt.Sprintf("data row %d", line), err)
		}
		if blankRecord(record) {
			continue
		}
		if len(record) <= opts.ValueColumn || len(record) <= cols.row || len(record) <= cols.col {
			return ParseResult{}, apperrors.NewParsingError(
				fmt.Sprintf("data row %d has %d fields", line, len(record)), nil)
		}

		raw := strings.TrimSpace(record[opts.ValueColumn])
		if raw == "" {
			result.Missing++
			continue
		}

		col, err := strconv.Atoi(strings.TrimSpace(record[cols.col]))
		if err != nil {
			return ParseResult{}, apperrors.NewParsingError(fmt.Sprintf("data row %d: invalid well column", line), err)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ParseResult{}, apperrors.NewParsingError(fmt.Sprintf("data row %d: invalid absorbance", line), err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			result.Missing++
			continue
		}

		result.Wells = append(result.Wells, RawWell{
			Row:        strings.TrimSpace(record[cols.row]),
			Col:        col,
			Absorbance: value,
		})
	}

	if len(result.Wells) == 0 {
		return ParseResult{}, apperrors.NewParsingError("no data rows after header", nil)
	}

	return result, nil
}

// columnIndices holds the positions of the well coordinate columns
type columnIndices struct {
	row     int
	col     int
	control int
}

// findColumns locates the well coordinate columns by name, falling back to
// the given positions when the header does not name them.
func findColumns(header []string, rowFallback, colFallback int) columnIndices {
	indices := columnIndices{row: -1, col: -1, control: -1}

	for i, name := range header {
		clean := strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		switch strings.ToLower(clean) {
		case wellRowHeader:
			indices.row = i
		case wellColHeader:
			indices.col = i
		case controlHeader:
			indices.control = i
		}
	}

	if indices.row == -1 {
		indices.row = rowFallback
	}
	if indices.col == -1 {
		indices.col = colFallback
	}
	return indices
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
