package pipeline

import (
	"log/slog"

	"htsqc/internal/analysis"
	"htsqc/internal/config"
	"htsqc/internal/dataprocessing"
	"htsqc/internal/files"
	"htsqc/internal/infrastructure"
	"htsqc/internal/plate"
	"htsqc/internal/render"
)

// State is everything one run reads and produces. Each step fills in the
// fields later steps consume; nothing is shared outside it.
type State struct {
	RunID string
	// SpanTraceID is set by the runner when the run span is recording.
	SpanTraceID string

	Config *config.Config
	Paths  *config.Paths
	Sink   files.Sink
	Logger *slog.Logger

	// Metrics is nil when run metrics are disabled.
	Metrics *infrastructure.RunMetrics

	Table   plate.CompiledTable
	Load    dataprocessing.LoadReport
	Stats   analysis.StatsTable
	Renders []render.RenderOutcome

	StatsFile string
	Workbook  string

	Steps []*StepState
}

// NewState creates the state of a run writing through sink.
func NewState(runID string, cfg *config.Config, sink files.Sink, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		RunID:  runID,
		Config: cfg,
		Paths:  config.NewPaths(cfg),
		Sink:   sink,
		Logger: logger,
	}
}

// Step returns the runtime state of the step with the given id, or nil.
func (s *State) Step(id string) *StepState {
	for _, st := range s.Steps {
		if st.ID == id {
			return st
		}
	}
	return nil
}
