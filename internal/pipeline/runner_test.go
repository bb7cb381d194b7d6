package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htsqc/internal/config"
	"htsqc/internal/files"
	"htsqc/internal/shared/testutil"
)

type fakeStep struct {
	BaseStep
	err   error
	calls *[]string
}

func (s *fakeStep) Execute(ctx context.Context, state *State) error {
	*s.calls = append(*s.calls, s.ID())
	return s.err
}

func testState(t *testing.T) *State {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewState("run-1", config.Default(), files.NewMemorySink(), logger)
}

func TestRunner_RunsStepsInOrder(t *testing.T) {
	var calls []string
	runner := NewRunner(nil,
		&fakeStep{BaseStep: NewBaseStep("a", "A"), calls: &calls},
		&fakeStep{BaseStep: NewBaseStep("b", "B"), calls: &calls},
		&fakeStep{BaseStep: NewBaseStep("c", "C"), calls: &calls},
	)
	state := testState(t)

	require.NoError(t, runner.Run(context.Background(), state))
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	require.Len(t, state.Steps, 3)
	for _, st := range state.Steps {
		assert.Equal(t, StepStatusCompleted, st.Status)
		assert.NotNil(t, st.StartTime)
		assert.NotNil(t, st.EndTime)
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	runner := NewRunner(nil,
		&fakeStep{BaseStep: NewBaseStep("a", "A"), calls: &calls},
		&fakeStep{BaseStep: NewBaseStep("b", "B"), calls: &calls, err: boom},
		&fakeStep{BaseStep: NewBaseStep("c", "C"), calls: &calls},
	)
	state := testState(t)

	err := runner.Run(context.Background(), state)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, calls)

	assert.Equal(t, StepStatusCompleted, state.Step("a").Status)
	assert.Equal(t, StepStatusFailed, state.Step("b").Status)
	assert.Equal(t, "boom", state.Step("b").Message)
	assert.Equal(t, StepStatusSkipped, state.Step("c").Status)
	assert.Contains(t, state.Step("c").Message, "previous step b failed")
}

func TestRunner_Cancelled(t *testing.T) {
	var calls []string
	runner := NewRunner(nil, &fakeStep{BaseStep: NewBaseStep("a", "A"), calls: &calls})
	state := testState(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, state)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
	assert.Equal(t, StepStatusSkipped, state.Step("a").Status)
}

func TestStepState_Duration(t *testing.T) {
	st := NewStepState("a", "A")
	assert.Zero(t, st.Duration())
	assert.Equal(t, StepStatusPending, st.Status)

	st.Start()
	st.Complete()
	assert.GreaterOrEqual(t, st.Duration().Nanoseconds(), int64(0))
	assert.Equal(t, StepStatusCompleted, st.Status)
}

func TestDefaultSteps_Order(t *testing.T) {
	var ids []string
	for _, s := range DefaultSteps() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{StepLoad, StepAggregate, StepMetrics, StepExport, StepRender}, ids)
}
