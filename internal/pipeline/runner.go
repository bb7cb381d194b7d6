package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"htsqc/internal/infrastructure"
)

// Runner executes steps sequentially. Each step depends on the output of
// the one before it, so the first failing step ends the run and the rest
// are marked skipped.
type Runner struct {
	steps  []Step
	tracer trace.Tracer
}

// NewRunner creates a runner over steps. A nil tracer disables spans.
func NewRunner(tracer trace.Tracer, steps ...Step) *Runner {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	return &Runner{steps: steps, tracer: tracer}
}

// Steps returns the steps in execution order.
func (r *Runner) Steps() []Step {
	return r.steps
}

// Run executes every step against state.
func (r *Runner) Run(ctx context.Context, state *State) error {
	state.Steps = make([]*StepState, len(r.steps))
	for i, step := range r.steps {
		state.Steps[i] = NewStepState(step.ID(), step.Name())
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", state.RunID)))
	defer span.End()
	state.SpanTraceID = infrastructure.TraceIDFromContext(ctx)

	for i, step := range r.steps {
		st := state.Steps[i]

		if err := ctx.Err(); err != nil {
			state.Logger.WarnContext(ctx, "run_cancelled", slog.String("step", step.ID()))
			r.skipRemaining(state, i, "run cancelled")
			span.SetStatus(codes.Error, "run cancelled")
			return err
		}

		state.Logger.InfoContext(ctx, "executing_step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(r.steps)))

		if err := r.execute(ctx, state, step, st); err != nil {
			r.skipRemaining(state, i+1, "previous step "+step.ID()+" failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "step "+step.ID()+" failed")
			return err
		}
	}

	span.SetStatus(codes.Ok, "run completed")
	state.Logger.InfoContext(ctx, "all_steps_completed")
	return nil
}

func (r *Runner) execute(ctx context.Context, state *State, step Step, st *StepState) error {
	ctx, span := r.tracer.Start(ctx, step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		))
	defer span.End()

	st.Start()
	start := time.Now()
	err := step.Execute(ctx, state)
	duration := time.Since(start)
	infrastructure.RecordStepMetrics(ctx, state.Metrics, step.ID(), duration, err)

	if err != nil {
		st.Fail(err)
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(state.Logger, err).ErrorContext(ctx, "step_failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		return err
	}

	st.Complete()
	span.SetStatus(codes.Ok, "step completed")
	state.Logger.DebugContext(ctx, "step_completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (r *Runner) skipRemaining(state *State, from int, reason string) {
	for _, st := range state.Steps[from:] {
		st.Skip(reason)
	}
}
