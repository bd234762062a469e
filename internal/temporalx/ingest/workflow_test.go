package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type fakeRunner struct {
	calls atomic.Int32
	got   markup.RunInput
	rep   markup.RunReport
	err   error
}

func (f *fakeRunner) Run(_ context.Context, in markup.RunInput) (markup.RunReport, error) {
	f.calls.Add(1)
	f.got = in
	return f.rep, f.err
}

func newEnv(t *testing.T, runner *fakeRunner) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Pipeline: runner, HeartbeatEvery: time.Hour}
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})
	return env
}

func TestWorkflowRunsPipeline(t *testing.T) {
	runID := uuid.New()
	runner := &fakeRunner{rep: markup.RunReport{
		RunID:      runID,
		Version:    "1700000000",
		Status:     "succeeded",
		Preprocess: &markup.PreprocessReport{Resolved: 3, Unresolved: 1},
		Load: &markup.LoadReport{
			Loader:    markup.LoaderResult{Inserted: 3},
			Activated: []int64{1, 2},
			Retention: markup.RetentionResult{Archived: []string{"1600000000"}},
		},
	}}
	env := newEnv(t, runner)

	accountID := uuid.New()
	env.ExecuteWorkflow(Workflow, Input{AccountID: accountID.String(), ModelType: "crm", Stages: "all"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out Result
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, runID.String(), out.RunID)
	require.Equal(t, "1700000000", out.Version)
	require.Equal(t, 3, out.Resolved)
	require.Equal(t, 1, out.Unresolved)
	require.Equal(t, 3, out.Inserted)
	require.Equal(t, 2, out.Activated)
	require.Equal(t, []string{"1600000000"}, out.Archived)

	require.EqualValues(t, 1, runner.calls.Load())
	require.Equal(t, accountID, runner.got.AccountID)
	require.Equal(t, []markup.Stage{markup.StagePreprocess, markup.StageLoad}, runner.got.Stages)
}

func TestWorkflowStructuralFailureIsNotRetried(t *testing.T) {
	runner := &fakeRunner{err: &markup.StructuralError{Op: "find version", Cause: errors.New("no version folder")}}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(Workflow, Input{AccountID: uuid.NewString(), ModelType: "crm"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrTypeStructural, appErr.Type())
	require.True(t, appErr.NonRetryable())
	require.EqualValues(t, 1, runner.calls.Load())
}

func TestWorkflowRejectsBadInput(t *testing.T) {
	runner := &fakeRunner{}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(Workflow, Input{ModelType: "crm"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.EqualValues(t, 0, runner.calls.Load())
}

func TestActivityRejectsUnknownStage(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	runner := &fakeRunner{}
	acts := &Activities{Log: logger.Nop(), Pipeline: runner}
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})

	_, err := env.ExecuteActivity(ActivityRun, Input{AccountID: uuid.NewString(), ModelType: "crm", Stages: "bogus"})
	require.Error(t, err)
	require.EqualValues(t, 0, runner.calls.Load())
}

func TestStartRequiresClient(t *testing.T) {
	_, err := Start(context.Background(), nil, "markupsync", Input{AccountID: uuid.NewString(), ModelType: "crm"})
	require.Error(t, err)
}

func TestWorkflowIDMatchesLockKey(t *testing.T) {
	id := uuid.New()
	require.Equal(t, markup.LockKey(id, "beh"), WorkflowID(id, "beh"))
}
