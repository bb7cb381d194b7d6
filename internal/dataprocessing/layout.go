package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "htsqc/internal/errors"
	"htsqc/internal/plate"
)

// ParseControlLayout reads a plate map with a header naming Well Row,
// Well Col and COMP_TYPE (first three columns if unnamed).
func ParseControlLayout(r io.Reader) (*plate.ControlLayout, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParsingError("control layout is empty", nil)
		}
		return nil, apperrors.NewParsingError("failed to read control layout header", err)
	}

	cols := findColumns(header, 0, 1)
	if cols.control == -1 {
		cols.control = 2
	}

	layout := plate.NewControlLayout()
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("control layout row %d", line), err)
		}
		if blankRecord(record) {
			continue
		}
		if len(record) <= cols.control || len(record) <= cols.row || len(record) <= cols.col {
			return nil, apperrors.NewParsingError(fmt.Sprintf("control layout row %d has %d fields", line, len(record)), nil)
		}

		col, err := strconv.Atoi(strings.TrimSpace(record[cols.col]))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("control layout row %d: invalid well column", line), err)
		}
		label := strings.TrimSpace(record[cols.control])
		if label == "" {
			continue
		}

		key := plate.NewWellKey(record[cols.row], col)
		if !layout.Set(key, label) {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("control layout assigns conflicting types to well %s%d", key.Row, key.Col)).
				WithContext("row", line)
		}
	}

	return layout, nil
}

// LoadControlLayout opens and parses the plate map at path.
func LoadControlLayout(path string) (*plate.ControlLayout, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("control layout "+path, err)
		}
		return nil, apperrors.NewStorageError("failed to open control layout", err)
	}
	defer f.Close()

	return ParseControlLayout(f)
}
