package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"

	"htsqc/internal/files"
)

// CSVWriter provides CSV export functionality on top of an output sink
type CSVWriter struct {
	sink   files.Sink
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(sink files.Sink, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{sink: sink, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers []string
	Records [][]string
}

// WriteCSV writes data to a CSV file with the given options, replacing any
// previous content
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (err error) {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", w.sink.Location(filePath)),
		slog.Int("record_count", len(options.Records)))

	file, err := w.sink.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if len(options.Headers) > 0 && len(record) != len(options.Headers) {
			return fmt.Errorf("record %d has %d fields, header has %d", i, len(record), len(options.Headers))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSimpleCSV writes a simple CSV file with headers and records
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}
