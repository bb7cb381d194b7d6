// Package exporter writes the statistics table produced by a run.
//
// CSVWriter is the low-level writer; every file goes through a files.Sink, so
// directory creation stays out of this package. StatsExporter writes
// experiment-stats.csv in the documented column order with NaN for undefined
// values. WorkbookExporter writes the same table plus the compiled wells as
// an xlsx workbook.
//
// Example usage:
//
//	sink := files.NewDirSink(".", logger)
//	err := exporter.NewStatsExporter(sink, logger).ExportStats(ctx, "experiment-stats.csv", stats)
package exporter
