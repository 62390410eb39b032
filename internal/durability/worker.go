package durability

import (
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// TaskQueue is the single task queue this module's worker polls; every
// workflow start below must target the same queue.
const TaskQueue = "huly-vibe-sync"

// NewWorker builds a Temporal worker registered with every workflow and
// activity this package defines.
func NewWorker(c client.Client, activities *Activities, log *slog.Logger) worker.Worker {
	w := worker.New(c, TaskQueue, worker.Options{})

	w.RegisterWorkflow(IssueSyncWorkflow)
	w.RegisterWorkflow(FullOrchestrationWorkflow)
	w.RegisterWorkflow(ScheduledSyncWorkflow)
	w.RegisterWorkflow(BeadsFileChangeWorkflow)
	w.RegisterWorkflow(HulyWebhookChangeWorkflow)
	w.RegisterWorkflow(DataReconciliationWorkflow)

	w.RegisterActivity(activities.RunProjectSync)
	w.RegisterActivity(activities.RunOrchestratorCycle)
	w.RegisterActivity(activities.ApplyStatus)
	w.RegisterActivity(activities.SetCursor)
	w.RegisterActivity(activities.MarkTombstone)
	w.RegisterActivity(activities.SweepReconciliationCandidates)

	log.Info("temporal worker registered", slog.String("task_queue", TaskQueue))
	return w
}
