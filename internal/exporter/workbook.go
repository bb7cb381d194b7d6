package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"htsqc/internal/analysis"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
	"htsqc/internal/plate"
)

const (
	statsSheet = "Stats"
	wellsSheet = "Wells"
)

// wellHeaders are the columns of the Wells sheet
var wellHeaders = []string{"Plate", "Source", "Well Row", "Well Col", "Raw Absorbance", "COMP_TYPE"}

// WorkbookExporter writes the statistics and compiled wells as one xlsx file
type WorkbookExporter struct {
	sink   files.Sink
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter writing through sink
func NewWorkbookExporter(sink files.Sink, logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{sink: sink, logger: logger}
}

// ExportWorkbook writes a Stats sheet mirroring the statistics CSV and a
// Wells sheet holding the compiled table. Undefined statistics are left as
// empty cells.
func (w *WorkbookExporter) ExportWorkbook(ctx context.Context, path string, stats analysis.StatsTable, table plate.CompiledTable) (err error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), statsSheet); err != nil {
		return fmt.Errorf("failed to name stats sheet: %w", err)
	}
	if _, err := f.NewSheet(wellsSheet); err != nil {
		return fmt.Errorf("failed to create wells sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheet(f, statsSheet, stats.Columns(), statsRows(stats), bold); err != nil {
		return err
	}
	if err := writeSheet(f, wellsSheet, wellHeaders, wellRows(table), bold); err != nil {
		return err
	}

	out, err := w.sink.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to open workbook", err).WithContext("path", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = apperrors.NewStorageError("failed to close workbook", cerr).WithContext("path", path)
		}
	}()

	if err := f.Write(out); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err).WithContext("path", path)
	}

	w.logger.InfoContext(ctx, "Workbook exported",
		slog.String("file", path),
		slog.Int("plates", len(stats.Plates)),
		slog.Int("wells", table.Len()))
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func statsRows(stats analysis.StatsTable) [][]interface{} {
	rows := make([][]interface{}, 0, len(stats.Plates))
	for _, p := range stats.Plates {
		row := []interface{}{p.Plate}
		for _, m := range analysis.Metrics {
			for _, c := range stats.ControlTypes {
				row = append(row, cellValue(p.Value(m, c)))
			}
		}
		row = append(row,
			cellValue(p.SignalToBackground),
			cellValue(p.ZFactor),
			cellValue(p.ZFactorRobust),
			formatFlags(p.Flags),
		)
		rows = append(rows, row)
	}
	return rows
}

func wellRows(table plate.CompiledTable) [][]interface{} {
	rows := make([][]interface{}, 0, table.Len())
	for _, r := range table.Readings {
		rows = append(rows, []interface{}{r.Plate, r.Source, r.Row, r.Col, r.Absorbance, r.ControlType})
	}
	return rows
}
