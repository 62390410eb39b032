package durability

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/orchestrator"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// retryPolicy retries activities with exponential backoff (initial 1s,
// factor 2, ceiling 30s, max 3 retries) only when the classified error
// is retryable. Temporal's own RetryPolicy.NonRetryableErrorTypes lets
// us express "only when retryable" by naming the non-retryable
// ClassifiedError kinds.
var retryPolicy = &temporal.RetryPolicy{
	InitialInterval:    time.Second,
	BackoffCoefficient: 2.0,
	MaximumInterval:    30 * time.Second,
	MaximumAttempts:    4, // the first attempt plus 3 retries
	NonRetryableErrorTypes: []string{
		types.KindValidation.String(),
		types.KindNotFound.String(),
		types.KindUnknown.String(),
	},
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy:         retryPolicy,
	}
}

// IssueSyncWorkflowInput is FullOrchestrationWorkflow for a single issue
// instead of a whole project; it exercises the finer per-field activity
// taxonomy (applyStatus, then setCursor when a cursor is given). It does
// not run markTombstone.
type IssueSyncWorkflowInput struct {
	ProjectIdentifier string
	Identifier        string
	Status            types.Status
	Cursor            string
}

// IssueSyncWorkflow applies a single issue's cross-surface sync.
// It is deterministic: every effect runs through an activity; the
// workflow itself only sequences them and reacts to their results.
func IssueSyncWorkflow(ctx workflow.Context, in IssueSyncWorkflowInput) error {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var a *Activities
	if err := workflow.ExecuteActivity(ctx, a.ApplyStatus, ApplyStatusInput{
		ProjectIdentifier: in.ProjectIdentifier,
		Identifier:        in.Identifier,
		Status:            in.Status,
	}).Get(ctx, nil); err != nil {
		return err
	}

	if in.Cursor != "" {
		if err := workflow.ExecuteActivity(ctx, a.SetCursor, SetCursorInput{
			ProjectIdentifier: in.ProjectIdentifier,
			Cursor:            in.Cursor,
		}).Get(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

// FullOrchestrationWorkflowInput parameterizes a fleet-wide cycle.
type FullOrchestrationWorkflowInput struct {
	ProjectIdentifier string
}

// FullOrchestrationProgress is the value returned by the "progress"
// query.
type FullOrchestrationProgress struct {
	Stage           string
	ProjectsTouched int
	Done            bool
}

// FullOrchestrationWorkflow runs the Orchestrator's cycle as a
// single workflow execution, supporting a "progress" query and a
// "cancel" signal.
func FullOrchestrationWorkflow(ctx workflow.Context, in FullOrchestrationWorkflowInput) (*orchestrator.CycleOutcome, error) {
	progress := FullOrchestrationProgress{Stage: "starting"}
	if err := workflow.SetQueryHandler(ctx, "progress", func() (FullOrchestrationProgress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	cancelCh := workflow.GetSignalChannel(ctx, "cancel")
	cancelled := false
	workflow.Go(ctx, func(gctx workflow.Context) {
		cancelCh.Receive(gctx, nil)
		cancelled = true
	})

	progress.Stage = "running"
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var a *Activities
	var outcome orchestrator.CycleOutcome
	if err := workflow.ExecuteActivity(ctx, a.RunOrchestratorCycle).Get(ctx, &outcome); err != nil {
		progress.Stage = "failed"
		progress.Done = true
		return nil, err
	}

	// Cancellation is cooperative: the signal goroutine only runs while
	// this workflow is suspended, so the flag is checked after the
	// activity yield rather than before it.
	if cancelled {
		progress.Stage = "cancelled"
		progress.Done = true
		return nil, temporal.NewApplicationError("cancelled", "CANCELLED")
	}

	progress.Stage = "completed"
	progress.ProjectsTouched = outcome.ProjectsTouched
	progress.Done = true
	return &outcome, nil
}

// ScheduledSyncWorkflowInput parameterizes the continuous-execution
// periodic-sync workflow.
type ScheduledSyncWorkflowInput struct {
	IntervalMinutes int
	MaxIterations   int // 0 means unbounded
	Iteration       int // carried across continue-as-new
}

// ScheduledSyncWorkflow replaces a setInterval-style periodic trigger
// with a continuous-execution workflow. The periodic full-sync never
// overlaps itself: the next iteration begins only after the previous
// returns, which continue-as-new naturally preserves since each
// iteration is a single synchronous activity call.
func ScheduledSyncWorkflow(ctx workflow.Context, in ScheduledSyncWorkflowInput) error {
	interval := time.Duration(in.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	cancelCh := workflow.GetSignalChannel(ctx, "cancel")
	cancelled := false
	workflow.Go(ctx, func(gctx workflow.Context) {
		cancelCh.Receive(gctx, nil)
		cancelled = true
	})

	if !cancelled {
		ctx = workflow.WithActivityOptions(ctx, activityOptions())
		var a *Activities
		_ = workflow.ExecuteActivity(ctx, a.RunOrchestratorCycle).Get(ctx, nil)
	}

	if cancelled || (in.MaxIterations > 0 && in.Iteration+1 >= in.MaxIterations) {
		return nil
	}

	if err := workflow.Sleep(ctx, interval); err != nil {
		return err
	}

	return workflow.NewContinueAsNewError(ctx, ScheduledSyncWorkflow, ScheduledSyncWorkflowInput{
		IntervalMinutes: in.IntervalMinutes,
		MaxIterations:   in.MaxIterations,
		Iteration:       in.Iteration + 1,
	})
}

// BeadsFileChangeWorkflowInput is the watcher-coalesced trigger payload.
type BeadsFileChangeWorkflowInput struct {
	Project  types.Project
	Files    []string
	Hulys    []huly.Issue
	SyncMeta *huly.SyncMeta
}

// BeadsFileChangeWorkflow runs a project sync in response to a debounced
// `.beads/` directory change. The watcher has already coalesced
// the burst of filesystem events into one call; this workflow just runs
// the same project cycle FullOrchestrationWorkflow would, scoped to one
// project.
func BeadsFileChangeWorkflow(ctx workflow.Context, in BeadsFileChangeWorkflowInput) (*phaseengine.CycleResult, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	var a *Activities
	var result phaseengine.CycleResult
	err := workflow.ExecuteActivity(ctx, a.RunProjectSync, RunProjectSyncInput{
		Project:    in.Project,
		HulyIssues: in.Hulys,
		SyncMeta:   in.SyncMeta,
	}).Get(ctx, &result)
	return &result, err
}

// HulyWebhookChangeWorkflowInput is the webhook trigger payload. Workflow
// IDs of the form "huly-webhook-<type>" with a USE_EXISTING conflict
// policy (set by the caller starting the workflow, not here) make
// concurrent webhooks of the same event type coalesce into one run.
type HulyWebhookChangeWorkflowInput struct {
	EventType string
	Project   types.Project
	Hulys     []huly.Issue
	SyncMeta  *huly.SyncMeta
}

// HulyWebhookChangeWorkflow runs a project sync in response to a Huly
// webhook event.
func HulyWebhookChangeWorkflow(ctx workflow.Context, in HulyWebhookChangeWorkflowInput) (*phaseengine.CycleResult, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	var a *Activities
	var result phaseengine.CycleResult
	err := workflow.ExecuteActivity(ctx, a.RunProjectSync, RunProjectSyncInput{
		Project:    in.Project,
		HulyIssues: in.Hulys,
		SyncMeta:   in.SyncMeta,
	}).Get(ctx, &result)
	return &result, err
}

// DataReconciliationWorkflowInput parameterizes the periodic stale-mapping
// sweep.
type DataReconciliationWorkflowInput struct {
	DryRun bool
	Action string // accepted for callers; the workflow does not read it
}

// DataReconciliationWorkflow sweeps the open reconciliation candidates
// recorded by the consistency-violation handling and, outside dry-run,
// sets the tombstone on each candidate issue whose Huly lookup returns not
// found. Candidate rows stay open. Action is not consulted: every sweep
// only marks, and no Store row is hard-deleted.
func DataReconciliationWorkflow(ctx workflow.Context, in DataReconciliationWorkflowInput) (ReconcileOutcome, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	var a *Activities
	var out ReconcileOutcome
	err := workflow.ExecuteActivity(ctx, a.SweepReconciliationCandidates, ReconcileInput{DryRun: in.DryRun}).Get(ctx, &out)
	return out, err
}
