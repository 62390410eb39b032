package durability

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/oculairmedia/huly-vibe-sync/internal/orchestrator"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

func newTestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	return suite.NewTestWorkflowEnvironment()
}

func TestFullOrchestrationWorkflowCompletes(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(FullOrchestrationWorkflow)
	env.OnActivity(a.RunOrchestratorCycle, mock.Anything).Return(&orchestrator.CycleOutcome{
		SyncRunID:       "run-1",
		ProjectsTouched: 3,
		Succeeded:       3,
	}, nil)

	env.ExecuteWorkflow(FullOrchestrationWorkflow, FullOrchestrationWorkflowInput{})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var outcome orchestrator.CycleOutcome
	require.NoError(t, env.GetWorkflowResult(&outcome))
	require.Equal(t, 3, outcome.ProjectsTouched)

	v, err := env.QueryWorkflow("progress")
	require.NoError(t, err)
	var progress FullOrchestrationProgress
	require.NoError(t, v.Get(&progress))
	require.True(t, progress.Done)
	require.Equal(t, "completed", progress.Stage)
	require.Equal(t, 3, progress.ProjectsTouched)
}

func TestFullOrchestrationWorkflowCancelSignal(t *testing.T) {
	// A cancel signal delivered while the cycle activity is in flight
	// makes the workflow finish with the CANCELLED error instead of the
	// activity's outcome.
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(FullOrchestrationWorkflow)
	env.OnActivity(a.RunOrchestratorCycle, mock.Anything).Return(&orchestrator.CycleOutcome{}, nil)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow("cancel", nil)
	}, 0)

	env.ExecuteWorkflow(FullOrchestrationWorkflow, FullOrchestrationWorkflowInput{})
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.Contains(t, err.Error(), "CANCELLED")

	v, qerr := env.QueryWorkflow("progress")
	require.NoError(t, qerr)
	var progress FullOrchestrationProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, "cancelled", progress.Stage)
	require.True(t, progress.Done)
}

func TestScheduledSyncWorkflowStopsAtMaxIterations(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(ScheduledSyncWorkflow)
	env.OnActivity(a.RunOrchestratorCycle, mock.Anything).Return(&orchestrator.CycleOutcome{}, nil)

	env.ExecuteWorkflow(ScheduledSyncWorkflow, ScheduledSyncWorkflowInput{
		IntervalMinutes: 1,
		MaxIterations:   1,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertNumberOfCalls(t, "RunOrchestratorCycle", 1)
}

func TestScheduledSyncWorkflowCancelSignal(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(ScheduledSyncWorkflow)
	env.OnActivity(a.RunOrchestratorCycle, mock.Anything).Return(&orchestrator.CycleOutcome{}, nil)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow("cancel", nil)
	}, 0)

	env.ExecuteWorkflow(ScheduledSyncWorkflow, ScheduledSyncWorkflowInput{
		IntervalMinutes: 1,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestIssueSyncWorkflowAppliesStatusAndCursor(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(IssueSyncWorkflow)
	env.OnActivity(a.ApplyStatus, mock.Anything, ApplyStatusInput{
		ProjectIdentifier: "ACME",
		Identifier:        "ACME-1",
		Status:            types.StatusDone,
	}).Return(nil)
	env.OnActivity(a.SetCursor, mock.Anything, SetCursorInput{
		ProjectIdentifier: "ACME",
		Cursor:            "2026-07-01T00:00:00Z",
	}).Return(nil)

	env.ExecuteWorkflow(IssueSyncWorkflow, IssueSyncWorkflowInput{
		ProjectIdentifier: "ACME",
		Identifier:        "ACME-1",
		Status:            types.StatusDone,
		Cursor:            "2026-07-01T00:00:00Z",
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestBeadsFileChangeWorkflowRunsProjectSync(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(BeadsFileChangeWorkflow)
	env.OnActivity(a.RunProjectSync, mock.Anything, mock.Anything).Return(&phaseengine.CycleResult{
		Project: "ACME",
	}, nil)

	env.ExecuteWorkflow(BeadsFileChangeWorkflow, BeadsFileChangeWorkflowInput{
		Project: types.Project{Identifier: "ACME"},
		Files:   []string{".beads/issues.jsonl"},
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result phaseengine.CycleResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "ACME", result.Project)
}

func TestDataReconciliationWorkflowDryRun(t *testing.T) {
	env := newTestEnv(t)
	a := NewActivities(nil, nil, nil, nil)

	env.RegisterWorkflow(DataReconciliationWorkflow)
	env.OnActivity(a.SweepReconciliationCandidates, mock.Anything, ReconcileInput{DryRun: true}).
		Return(ReconcileOutcome{Candidates: 2}, nil)

	env.ExecuteWorkflow(DataReconciliationWorkflow, DataReconciliationWorkflowInput{DryRun: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ReconcileOutcome
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 2, out.Candidates)
	require.Zero(t, out.Resolved)
}
