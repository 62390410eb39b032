package durability

import (
	"context"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// Scheduler starts workflows against a Temporal client; it is the
// surface the Watchers and an eventual webhook handler call into,
// decoupling them from the Temporal SDK's client type.
type Scheduler struct {
	client client.Client
}

// NewScheduler wraps a Temporal client.
func NewScheduler(c client.Client) *Scheduler {
	return &Scheduler{client: c}
}

// ScheduleBeadsFileChange starts a BeadsFileChangeWorkflow for a project
// whose .beads tree the watcher observed changing.
// hulyIssues/syncMeta are the most recently cached Huly snapshot for the
// project. They may be nil, but the Phase Engine does not fetch Huly
// issues itself: with nil, the project cycle runs with an empty Huly side.
func (s *Scheduler) ScheduleBeadsFileChange(ctx context.Context, project types.Project, changedPaths []string, hulyIssues []huly.Issue, syncMeta *huly.SyncMeta) error {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("beads-file-change-%s", project.Identifier),
		TaskQueue: TaskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, BeadsFileChangeWorkflow, BeadsFileChangeWorkflowInput{
		Project:  project,
		Files:    changedPaths,
		Hulys:    hulyIssues,
		SyncMeta: syncMeta,
	})
	return err
}

// ScheduleHulyWebhookChange starts (or coalesces into) a
// HulyWebhookChangeWorkflow for the given event type.
func (s *Scheduler) ScheduleHulyWebhookChange(ctx context.Context, eventType string, project types.Project, hulyIssues []huly.Issue, syncMeta *huly.SyncMeta) error {
	opts := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("huly-webhook-%s", eventType),
		TaskQueue:                TaskQueue,
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, HulyWebhookChangeWorkflow, HulyWebhookChangeWorkflowInput{
		EventType: eventType,
		Project:   project,
		Hulys:     hulyIssues,
		SyncMeta:  syncMeta,
	})
	return err
}

// StartScheduledSync starts the continuous-execution periodic-sync
// workflow, replacing a setInterval-style trigger. workflowId is
// fixed so a restart of the process resumes the same continuous
// execution chain rather than starting a sibling.
func (s *Scheduler) StartScheduledSync(ctx context.Context, intervalMinutes, maxIterations int) error {
	opts := client.StartWorkflowOptions{
		ID:        "scheduled-sync",
		TaskQueue: TaskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, ScheduledSyncWorkflow, ScheduledSyncWorkflowInput{
		IntervalMinutes: intervalMinutes,
		MaxIterations:   maxIterations,
	})
	return err
}

// StartFullOrchestration starts a one-shot FullOrchestrationWorkflow,
// e.g. for a manually triggered admin sync.
func (s *Scheduler) StartFullOrchestration(ctx context.Context, projectIdentifier string) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	return s.client.ExecuteWorkflow(ctx, opts, FullOrchestrationWorkflow, FullOrchestrationWorkflowInput{
		ProjectIdentifier: projectIdentifier,
	})
}

// CancelWorkflow sends the "cancel" signal a running workflow listens for.
func (s *Scheduler) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	return s.client.SignalWorkflow(ctx, workflowID, runID, "cancel", nil)
}

// StartReconciliation starts a DataReconciliationWorkflow sweep.
func (s *Scheduler) StartReconciliation(ctx context.Context, dryRun bool, action string) error {
	opts := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, DataReconciliationWorkflow, DataReconciliationWorkflowInput{
		DryRun: dryRun,
		Action: action,
	})
	return err
}
