package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"htsqc/internal/config"
)

const (
	ServiceName    = config.AppName
	ServiceVersion = config.AppVersion
	MeterName      = "htsqc"
)

// OTelConfig holds OpenTelemetry configuration. A batch run has no collector
// to talk to, so spans go to a JSON file and metrics to a Prometheus textfile.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	RunID          string
	TraceFile      string // empty disables tracing
	MetricsFile    string // empty disables metrics
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// never nil; they are no-ops when the corresponding exporter is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	traceFile   *os.File
	metricsFile string
}

// OTelConfigFrom builds the telemetry setup for one run.
func OTelConfigFrom(cfg config.TelemetryConfig, runID string) *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		RunID:          runID,
		TraceFile:      cfg.TraceFile,
		MetricsFile:    cfg.MetricsFile,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics for a run.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.TelemetryConfig{}, GenerateTraceID())
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.Bool("tracing_enabled", cfg.TraceFile != ""),
		slog.Bool("metrics_enabled", cfg.MetricsFile != ""))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if cfg.TraceFile != "" {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.MetricsFile != "" {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			_ = providers.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.ServiceInstanceID(cfg.RunID),
	), nil
}

// initializeTracing sets up span export to the trace file
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	if dir := filepath.Dir(cfg.TraceFile); dir != "." {
		if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
	}
	file, err := os.Create(cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.traceFile = file

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("trace_file", cfg.TraceFile),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up a Prometheus registry that is written out as a
// textfile on Shutdown
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.Registry = registry
	providers.metricsFile = cfg.MetricsFile

	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("metrics_file", cfg.MetricsFile))

	return nil
}

// RunMetrics holds the instruments recorded during a pipeline run
type RunMetrics struct {
	FilesLoaded     metric.Int64Counter
	FilesSkipped    metric.Int64Counter
	FiguresWritten  metric.Int64Counter
	HeatmapsSkipped metric.Int64Counter
	StepDuration    metric.Float64Histogram
	PlateZFactor    metric.Float64Gauge
}

// CreateRunMetrics creates the pipeline instruments on meter
func CreateRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	filesLoaded, err := meter.Int64Counter(
		"htsqc_files_loaded_total",
		metric.WithDescription("Plate files loaded into the compiled table"),
	)
	if err != nil {
		return nil, err
	}

	filesSkipped, err := meter.Int64Counter(
		"htsqc_files_skipped_total",
		metric.WithDescription("Input entries skipped with a warning"),
	)
	if err != nil {
		return nil, err
	}

	figuresWritten, err := meter.Int64Counter(
		"htsqc_figures_written_total",
		metric.WithDescription("PNG figures written, heatmaps included"),
	)
	if err != nil {
		return nil, err
	}

	heatmapsSkipped, err := meter.Int64Counter(
		"htsqc_heatmaps_skipped_total",
		metric.WithDescription("Plates whose heatmap could not be drawn"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"htsqc_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	plateZFactor, err := meter.Float64Gauge(
		"htsqc_plate_z_factor",
		metric.WithDescription("Z' factor per plate"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		FilesLoaded:     filesLoaded,
		FilesSkipped:    filesSkipped,
		FiguresWritten:  figuresWritten,
		HeatmapsSkipped: heatmapsSkipped,
		StepDuration:    stepDuration,
		PlateZFactor:    plateZFactor,
	}, nil
}

// Shutdown flushes spans, writes the metrics textfile and releases files.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.traceFile != nil {
		if err := p.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		p.traceFile = nil
	}

	if p.MeterProvider != nil {
		// gather before shutdown; the reader stops collecting afterwards
		if p.metricsFile != "" {
			if err := writeMetricsFile(p.metricsFile, p.Registry); err != nil {
				errs = append(errs, err)
			}
		}
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func writeMetricsFile(path string, registry *prometheus.Registry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(toAttributes(attributes)...)
}

func toAttributes(attributes map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

// RecordStepMetrics records the duration and outcome of one pipeline step
func RecordStepMetrics(ctx context.Context, metrics *RunMetrics, stepID string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.String("status", status),
	))
}

// RecordFileOutcome counts one input entry as loaded or skipped
func RecordFileOutcome(ctx context.Context, metrics *RunMetrics, loaded bool, reason string) {
	if metrics == nil {
		return
	}
	if loaded {
		metrics.FilesLoaded.Add(ctx, 1)
		return
	}
	metrics.FilesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordFigure counts a written figure, or a skipped heatmap when err is set
func RecordFigure(ctx context.Context, metrics *RunMetrics, kind string, err error) {
	if metrics == nil {
		return
	}
	if err != nil {
		if kind == "heatmap" {
			metrics.HeatmapsSkipped.Add(ctx, 1)
		}
		return
	}
	metrics.FiguresWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordPlateZFactor stores a plate's Z' and robust Z'. Undefined values
// are not recorded.
func RecordPlateZFactor(ctx context.Context, metrics *RunMetrics, plate int, z, robust float64) {
	if metrics == nil {
		return
	}
	for variant, v := range map[string]float64{"standard": z, "robust": robust} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		metrics.PlateZFactor.Record(ctx, v, metric.WithAttributes(
			attribute.Int("plate", plate),
			attribute.String("variant", variant),
		))
	}
}
