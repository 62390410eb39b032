// Package phaseengine implements the per-project four-phase
// reconciliation pipeline: Huly->Vibe, Vibe->Huly, Beads<->Huly, and the
// externally-owned documentation sync.
package phaseengine

import (
	"context"
	"log/slog"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// Options parameterizes a single project's cycle.
type Options struct {
	DryRun             bool
	AllowSubstringIn3b bool // substring title links in Beads->Huly too
	GitPush            bool
}

// Engine runs the four-phase pipeline for one project at a time; callers
// (the Orchestrator, or a Durability Layer activity) run multiple Engine
// invocations concurrently across projects.
type Engine struct {
	store        store.Store
	huly         HulyClient
	vibe         VibeClient
	docs         DocSyncer
	beadsFactory func(project *types.Project) BeadsAdapter
	metrics      *observability.Metrics
	log          *slog.Logger
	opts         Options
}

// New builds an Engine. beadsFactory constructs a project-scoped
// BeadsAdapter; each project is its own Git working tree, the mutable
// shared resource of Phase 3.
func New(
	st store.Store,
	hulyClient HulyClient,
	vibeClient VibeClient,
	docs DocSyncer,
	beadsFactory func(project *types.Project) BeadsAdapter,
	metrics *observability.Metrics,
	log *slog.Logger,
	opts Options,
) *Engine {
	if docs == nil {
		docs = NoopDocSyncer{}
	}
	return &Engine{
		store:        st,
		huly:         hulyClient,
		vibe:         vibeClient,
		docs:         docs,
		beadsFactory: beadsFactory,
		metrics:      metrics,
		log:          log,
		opts:         opts,
	}
}

func (e *Engine) beads(project *types.Project) BeadsAdapter {
	return e.beadsFactory(project)
}

// RunProject executes the four phases in order for one project, given
// the already-fetched Huly issue slice for that project (the
// orchestrator decides bulk vs per-project fetch; the Phase Engine
// only ever sees the result). Per-issue failures are recorded in the
// returned CycleResult and never abort a sibling phase; only an error
// returned from this function itself represents a whole-project failure
// (e.g. the snapshot fetch failed entirely).
func (e *Engine) RunProject(ctx context.Context, project *types.Project, hulyIssues []huly.Issue, syncMeta *huly.SyncMeta) (*CycleResult, error) {
	log := observability.WithProject(e.log, project.Identifier)

	snap, err := e.captureSnapshot(ctx, project, hulyIssues, syncMeta)
	if err != nil {
		return nil, err
	}

	result := &CycleResult{Project: project.Identifier}

	// Phase 1: Huly -> Vibe. Records which Vibe tasks it touched so
	// Phase 2 never reads them back in the same cycle.
	phase1Log := observability.WithPhase(log, "phase1")
	p1Ctx, p1Span := observability.StartPhaseSpan(ctx, project.Identifier, "phase1")
	p1, touchedVibe := e.phase1HulyToVibe(p1Ctx, phase1Log, project, snap)
	p1Span.End()
	result.Phase1 = p1

	// Phase 2: Vibe -> Huly, skipping anything Phase 1 just touched.
	phase2Log := observability.WithPhase(log, "phase2")
	p2Ctx, p2Span := observability.StartPhaseSpan(ctx, project.Identifier, "phase2")
	result.Phase2 = e.phase2VibeToHuly(p2Ctx, phase2Log, project, snap, touchedVibe)
	p2Span.End()

	// Phase 3: Beads <-> Huly, strictly 3a before 3b.
	phase3Log := observability.WithPhase(log, "phase3")
	p3Ctx, p3Span := observability.StartPhaseSpan(ctx, project.Identifier, "phase3")
	p3a, touchedBeads := e.phase3aHulyToBeads(p3Ctx, phase3Log, project, snap)
	result.Phase3a = p3a
	result.Phase3b = e.phase3bBeadsToHuly(p3Ctx, phase3Log, project, snap, touchedBeads)
	p3Span.End()

	pushed, err := e.commitBeadsTree(ctx, phase3Log, project)
	result.GitPushed = pushed
	if err != nil {
		log.ErrorContext(ctx, "beads git commit/push failed", slog.String("error", err.Error()))
		// A Git push failure aborts Phase 3's git tail but not sibling
		// phases or the project overall.
	}

	// Phase 4: documentation sync, out of core scope.
	phase4Log := observability.WithPhase(log, "phase4")
	result.Phase4 = e.phase4Docs(ctx, phase4Log, project)

	if syncMeta != nil && syncMeta.LatestModified != "" {
		result.Cursor = syncMeta.LatestModified
	}

	return result, nil
}

// commitBeadsTree runs the Phase 3 Git tail.
// dryRun disables it entirely; it is meaningless without real CLI/Git
// side effects.
func (e *Engine) commitBeadsTree(ctx context.Context, log *slog.Logger, project *types.Project) (bool, error) {
	if e.opts.DryRun {
		return false, nil
	}
	if err := e.beads(project).SyncAndCommit(ctx, e.opts.GitPush); err != nil {
		return false, err
	}
	return e.opts.GitPush, nil
}
