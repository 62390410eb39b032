// Package durability wraps the Phase Engine and Orchestrator in
// Temporal workflows and activities. All activities are idempotent; they
// are the only place a non-deterministic effect (an HTTP call, a Beads
// CLI invocation, a Store write) may occur.
package durability

import (
	"context"
	"fmt"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/orchestrator"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// Activities bundles the non-deterministic effects the workflows below
// invoke. It holds the same collaborators as the Orchestrator/Engine but
// is wired in directly so the Temporal worker can register its methods
// as activities without going through the Engine's own scheduling.
type Activities struct {
	store        store.Store
	orchestrator *orchestrator.Orchestrator
	engineFor    func(project *types.Project) *phaseengine.Engine
	huly         HulyClient
}

// HulyClient is the subset of huly.Client an IssueSyncWorkflow's
// activities need to fetch and mutate a single issue.
type HulyClient interface {
	GetIssue(ctx context.Context, id string) (*huly.Issue, error)
}

// NewActivities builds an Activities bundle for worker registration.
func NewActivities(st store.Store, orch *orchestrator.Orchestrator, engineFor func(project *types.Project) *phaseengine.Engine, hulyClient HulyClient) *Activities {
	return &Activities{store: st, orchestrator: orch, engineFor: engineFor, huly: hulyClient}
}

// RunProjectSyncInput is the argument to RunProjectSync.
type RunProjectSyncInput struct {
	Project    types.Project
	HulyIssues []huly.Issue
	SyncMeta   *huly.SyncMeta
}

// RunProjectSync runs the four-phase pipeline for one project.
// This is the coarse-grained activity FullOrchestrationWorkflow and
// BeadsFileChangeWorkflow delegate to: the Phase Engine's own branching
// (link cascade, conflict resolution, re-parenting) is itself
// deterministic and side-effect-free except at its store/client call
// sites, but re-expressing every one of those call sites as a
// separately-scheduled Temporal activity would mean duplicating the
// Engine's control flow inside workflow code. IssueSyncWorkflow below
// uses the finer per-issue activity taxonomy instead, for the
// single-issue entry point where that granularity is actually
// exercised.
func (a *Activities) RunProjectSync(ctx context.Context, in RunProjectSyncInput) (*phaseengine.CycleResult, error) {
	engine := a.engineFor(&in.Project)
	return engine.RunProject(ctx, &in.Project, in.HulyIssues, in.SyncMeta)
}

// RunOrchestratorCycle runs one full fleet cycle, used by
// ScheduledSyncWorkflow and the manual trigger path of
// FullOrchestrationWorkflow.
func (a *Activities) RunOrchestratorCycle(ctx context.Context) (*orchestrator.CycleOutcome, error) {
	return a.orchestrator.RunCycle(ctx)
}

// ApplyStatusInput drives the ApplyStatus activity.
type ApplyStatusInput struct {
	ProjectIdentifier string
	Identifier        string
	Status            types.Status
}

// ApplyStatus is a finer-grained activity in the IssueSyncWorkflow
// taxonomy: apply a single field to the stored row; used when an
// external caller (e.g. a reconciliation sweep) needs to nudge one
// issue without running the whole Phase Engine.
func (a *Activities) ApplyStatus(ctx context.Context, in ApplyStatusInput) error {
	issue, err := a.store.GetIssue(ctx, in.Identifier)
	if err != nil {
		return err
	}
	if issue == nil {
		return fmt.Errorf("applyStatus: issue %s not found", in.Identifier)
	}
	issue.Status = in.Status
	return a.store.UpsertIssue(ctx, issue)
}

// SetCursorInput drives the SetCursor activity.
type SetCursorInput struct {
	ProjectIdentifier string
	Cursor            string
}

// SetCursor advances the per-project incremental-fetch watermark.
func (a *Activities) SetCursor(ctx context.Context, in SetCursorInput) error {
	if in.Cursor == "" {
		return nil
	}
	return a.store.SetHulySyncCursor(ctx, in.ProjectIdentifier, in.Cursor)
}

// MarkTombstoneInput drives the MarkTombstone activity.
type MarkTombstoneInput struct {
	Identifier string
}

// MarkTombstone records that an identifier's Huly counterpart is gone for
// good: a 404 observed by any engine component.
func (a *Activities) MarkTombstone(ctx context.Context, in MarkTombstoneInput) error {
	return a.store.MarkDeletedFromHuly(ctx, in.Identifier)
}

// ReconcileInput drives the DataReconciliationWorkflow's sweep activity.
type ReconcileInput struct {
	DryRun bool
}

// ReconcileOutcome reports what the sweep found and (optionally) acted on.
type ReconcileOutcome struct {
	Candidates int
	Resolved   int
}

// SweepReconciliationCandidates scans open ReconciliationCandidate rows
// and, outside dry-run, resolves the ones whose Huly counterpart has
// since confirmed-404'd by marking the underlying issue's tombstone.
func (a *Activities) SweepReconciliationCandidates(ctx context.Context, in ReconcileInput) (ReconcileOutcome, error) {
	candidates, err := a.store.GetOpenReconciliationCandidates(ctx)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	out := ReconcileOutcome{Candidates: len(candidates)}
	if in.DryRun {
		return out, nil
	}
	for _, c := range candidates {
		issue, err := a.huly.GetIssue(ctx, c.Identifier)
		if err != nil {
			continue // transient; the next sweep will retry
		}
		// GetIssue returns (nil, nil) on a confirmed 404; only that may
		// tombstone, since a tombstoned issue is never re-created.
		if issue == nil {
			if markErr := a.store.MarkDeletedFromHuly(ctx, c.Identifier); markErr == nil {
				out.Resolved++
			}
		}
	}
	return out, nil
}
