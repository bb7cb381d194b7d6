package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Paths contains every location the pipeline reads from or writes to.
// Output entries are relative to OutputRoot so they can be handed to an
// output sink rooted there.
type Paths struct {
	InputDir      string
	ControlLayout string
	OutputRoot    string

	FiguresDir  string
	HeatmapsDir string
	StatsFile   string
	Workbook    string
}

// NewPaths resolves the configured locations. Input paths are left as given
// (relative to the working directory).
func NewPaths(cfg *Config) *Paths {
	figures := filepath.Clean(cfg.Output.FiguresDir)
	return &Paths{
		InputDir:      cfg.Input.Directory,
		ControlLayout: cfg.Input.ControlLayout,
		OutputRoot:    cfg.Output.Root,
		FiguresDir:    figures,
		HeatmapsDir:   filepath.Join(figures, cfg.Output.HeatmapsDir),
		StatsFile:     cfg.Output.StatsFile,
		Workbook:      cfg.Output.Workbook,
	}
}

// FigurePath returns the sink-relative path of a fixed-name figure.
func (p *Paths) FigurePath(name string) string {
	return filepath.Join(p.FiguresDir, name)
}

// HeatmapPath returns the sink-relative path of a plate heatmap.
func (p *Paths) HeatmapPath(plate int) string {
	return filepath.Join(p.HeatmapsDir, fmt.Sprintf(HeatmapFilePattern, plate))
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution",
		slog.String("input_dir", p.InputDir),
		slog.String("control_layout", p.ControlLayout),
		slog.String("output_root", p.OutputRoot),
		slog.String("figures_dir", p.FiguresDir),
		slog.String("heatmaps_dir", p.HeatmapsDir),
		slog.String("stats_file", p.StatsFile),
		slog.String("workbook", p.Workbook))
}
