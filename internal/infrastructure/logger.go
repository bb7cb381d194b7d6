package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"htsqc/internal/config"
)

// runLog is the process-wide run logger and the log file it writes to.
var runLog struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// consoleOutput is where "console" and "both" write; tests swap it out.
var consoleOutput io.Writer = os.Stdout

// InitializeLogger builds the JSON run logger once and installs it as the
// slog default. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	runLog.once.Do(func() {
		runLog.logger, err = newRunLogger(cfg)
		if runLog.logger != nil {
			slog.SetDefault(runLog.logger)
		}
	})
	return runLog.logger, err
}

// GetLogger returns the run logger, or the slog default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	if runLog.logger == nil {
		return slog.Default()
	}
	return runLog.logger
}

func newRunLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	out, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}

	level := parseLogLevel(cfg.Level)
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	})
	return slog.New(&runHandler{Handler: handler}), nil
}

// logOutput resolves the configured destination, opening the log file when
// one is needed.
func logOutput(cfg config.LoggingConfig) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return consoleOutput, nil
	}

	f, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	runLog.mu.Lock()
	runLog.file = f
	runLog.mu.Unlock()

	if mode == "both" {
		return io.MultiWriter(consoleOutput, f), nil
	}
	return f, nil
}

// runHandler tags records with the run id from the context and, inside a
// recording span, with the span's trace id so log lines can be matched to
// the trace file.
type runHandler struct {
	slog.Handler
}

func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	if runID := GetTraceID(ctx); runID != "" {
		r.AddAttrs(slog.String("trace_id", runID))
	}
	if spanTrace := TraceIDFromContext(ctx); spanTrace != "" {
		r.AddAttrs(slog.String("otel_trace_id", spanTrace))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel accepts slog level names in any case plus "warning".
// Anything else logs at info.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// CloseLogFile closes the run log file if one is open.
func CloseLogFile() error {
	runLog.mu.Lock()
	defer runLog.mu.Unlock()

	if runLog.file == nil {
		return nil
	}
	err := runLog.file.Close()
	runLog.file = nil
	return err
}

// ResetLoggerForTesting drops the run logger so the next InitializeLogger
// builds a fresh one.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	runLog.logger = nil
	runLog.once = sync.Once{}
	consoleOutput = os.Stdout
}

func openLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.FilePermissions)
}
