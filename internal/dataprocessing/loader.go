package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"htsqc/internal/config"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
	"htsqc/internal/infrastructure"
	"htsqc/internal/plate"
)

// LoadOptions configures how plate exports are read and labelled.
type LoadOptions struct {
	ParseOptions
	// DefaultLabel is the control type of wells the layout does not map.
	DefaultLabel string
}

// OptionsFromConfig builds load options from the input configuration.
func OptionsFromConfig(cfg config.InputConfig) LoadOptions {
	return LoadOptions{
		ParseOptions: ParseOptions{
			HeaderRows:  cfg.HeaderRows,
			ValueColumn: cfg.ValueColumn,
		},
		DefaultLabel: cfg.DefaultLabel,
	}
}

// FileOutcome is the result of loading one directory entry.
type FileOutcome struct {
	File string
	// Plate is the plate number a CSV was assigned, 0 for non-CSV entries.
	Plate int
	Wells int
	// Missing counts rows dropped for an empty absorbance cell.
	Missing int
	Err     error
}

// OK reports whether the entry was loaded into the compiled table.
func (o FileOutcome) OK() bool {
	return o.Err == nil
}

// LoadReport lists what happened to every entry of the input directory.
type LoadReport struct {
	Dir       string
	Layout    string
	Outcomes  []FileOutcome
	LayoutErr error
	// DirErr is set when the input directory does not exist.
	DirErr error
	// Empty is set when the input directory is missing or has no files.
	Empty bool
}

// Loaded returns the outcomes of plates in the compiled table.
func (r LoadReport) Loaded() []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Skipped returns the outcomes of entries left out of the compiled table.
func (r LoadReport) Skipped() []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// CandidateCount returns the number of CSV files found.
func (r LoadReport) CandidateCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Plate > 0 {
			n++
		}
	}
	return n
}

// Loader turns a directory of plate exports into a compiled table.
type Loader struct {
	discovery *files.Discovery
	opts      LoadOptions
	logger    *slog.Logger
}

// NewLoader creates a loader. Relative directories resolve against basePath.
func NewLoader(basePath string, opts LoadOptions, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultLabel == "" {
		opts.DefaultLabel = "COMP"
	}
	return &Loader{
		discovery: files.NewDiscovery(basePath),
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "loader"),
	}
}

// Load reads every CSV in dir, joins it with the control layout and tags it
// with its plate number. Per-file problems and a missing directory are
// reported, not returned; the error return is reserved for a directory that
// exists but cannot be listed.
func (l *Loader) Load(ctx context.Context, dir, layoutPath string) (plate.CompiledTable, LoadReport, error) {
	report := LoadReport{Dir: dir, Layout: layoutPath}

	listing, err := l.discovery.ListPlateFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.DirErr = apperrors.NewNotFoundError("input directory "+dir, err)
			report.Empty = true
			l.logger.WarnContext(ctx, "Input directory not found, no raw files loaded for analysis",
				slog.String("dir", dir),
				slog.String("error", report.DirErr.Error()))
			return plate.CompiledTable{}, report, nil
		}
		return plate.CompiledTable{}, report, apperrors.NewStorageError("failed to list input directory", err)
	}
	report.Dir = listing.Dir

	if listing.Empty() {
		report.Empty = true
		l.logger.WarnContext(ctx, "No raw files loaded for analysis", slog.String("dir", listing.Dir))
		return plate.CompiledTable{}, report, nil
	}

	layout, layoutErr := LoadControlLayout(layoutPath)
	if layoutErr != nil {
		report.LayoutErr = layoutErr
		l.logger.ErrorContext(ctx, "Control layout unavailable, plates cannot be labelled",
			slog.String("layout", layoutPath),
			slog.String("error", layoutErr.Error()))
	} else {
		l.logger.InfoContext(ctx, "Control layout loaded",
			slog.String("layout", layoutPath),
			slog.Int("mapped_wells", layout.Len()))
	}

	var table plate.CompiledTable
	plateNumber := 0
	for _, entry := range listing.Entries {
		if err := ctx.Err(); err != nil {
			return table, report, err
		}

		if !entry.IsCSV() {
			outcome := FileOutcome{File: entry.Name, Err: apperrors.NewUnsupportedFileError(entry.Name)}
			l.warn(ctx, outcome)
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		plateNumber++
		outcome := FileOutcome{File: entry.Name, Plate: plateNumber}

		if layoutErr != nil {
			outcome.Err = fmt.Errorf("join with control layout: %w", layoutErr)
			l.warn(ctx, outcome)
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		readings, missing, err := l.loadPlate(entry, plateNumber, layout)
		outcome.Missing = missing
		if err != nil {
			outcome.Err = err
			l.warn(ctx, outcome)
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		outcome.Wells = len(readings)
		table = table.Append(readings...)
		report.Outcomes = append(report.Outcomes, outcome)

		if missing > 0 {
			infrastructure.WithPlate(l.logger, plateNumber, entry.Name).WarnContext(ctx,
				"Plate has wells without a reading",
				slog.Int("missing", missing))
		}
	}

	l.logger.InfoContext(ctx, fmt.Sprintf("Loaded %d files for processing", len(listing.CSV())),
		slog.Int("plates", len(report.Loaded())),
		slog.Int("skipped", len(report.Skipped())),
		slog.Int("wells", table.Len()))

	return table, report, nil
}

func (l *Loader) loadPlate(entry files.FileInfo, plateNumber int, layout *plate.ControlLayout) ([]plate.Reading, int, error) {
	f, err := os.Open(entry.Path)
	if err != nil {
		return nil, 0, apperrors.NewStorageError("failed to open plate file", err)
	}
	defer f.Close()

	parsed, err := ParsePlateCSV(f, l.opts.ParseOptions)
	if err != nil {
		return nil, 0, err
	}

	readings := make([]plate.Reading, len(parsed.Wells))
	for i, w := range parsed.Wells {
		readings[i] = plate.Reading{
			Plate:       plateNumber,
			Source:      entry.Name,
			Row:         w.Row,
			Col:         w.Col,
			Absorbance:  w.Absorbance,
			ControlType: layout.Label(plate.NewWellKey(w.Row, w.Col), l.opts.DefaultLabel),
		}
	}
	return readings, parsed.Missing, nil
}

func (l *Loader) warn(ctx context.Context, outcome FileOutcome) {
	msg := "File not processed, ensure data file is in raw, unedited list format"
	if apperrors.IsType(outcome.Err, apperrors.ErrTypeUnsupported) {
		msg = "Not configured to handle data types other than CSV"
	}
	l.logger.WarnContext(ctx, msg,
		slog.String("file", outcome.File),
		slog.Int("plate", outcome.Plate),
		slog.String("error", outcome.Err.Error()))
	infrastructure.AddSpanEvent(ctx, "file.skipped", map[string]interface{}{
		"file":  outcome.File,
		"plate": outcome.Plate,
		"error": outcome.Err.Error(),
	})
}
