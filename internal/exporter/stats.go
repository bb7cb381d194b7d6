package exporter

import (
	"context"
	"log/slog"

	"htsqc/internal/analysis"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
)

// StatsExporter writes the per-plate statistics table
type StatsExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewStatsExporter creates a statistics exporter writing through sink
func NewStatsExporter(sink files.Sink, logger *slog.Logger) *StatsExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsExporter{
		csvWriter: NewCSVWriter(sink, logger),
		logger:    logger,
	}
}

// ExportStats writes table to path as CSV. The header is the table's
// documented column order.
func (s *StatsExporter) ExportStats(ctx context.Context, path string, table analysis.StatsTable) error {
	headers, records := StatsRecords(table)

	if err := s.csvWriter.WriteSimpleCSV(path, headers, records); err != nil {
		return apperrors.NewStorageError("failed to write statistics", err).WithContext("path", path)
	}

	s.logger.InfoContext(ctx, "Statistics exported",
		slog.String("file", path),
		slog.Int("plates", len(records)),
		slog.Int("columns", len(headers)))
	return nil
}

// StatsRecords converts table into a header and one record per plate
func StatsRecords(table analysis.StatsTable) ([]string, [][]string) {
	headers := table.Columns()
	records := make([][]string, 0, len(table.Plates))

	for _, p := range table.Plates {
		record := make([]string, 0, len(headers))
		record = append(record, formatInt(p.Plate))
		for _, m := range analysis.Metrics {
			for _, c := range table.ControlTypes {
				record = append(record, formatFloat(p.Value(m, c)))
			}
		}
		record = append(record,
			formatFloat(p.SignalToBackground),
			formatFloat(p.ZFactor),
			formatFloat(p.ZFactorRobust),
			formatFlags(p.Flags),
		)
		records = append(records, record)
	}

	return headers, records
}
