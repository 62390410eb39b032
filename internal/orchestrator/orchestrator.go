// Package orchestrator implements the cross-project sync driver:
// fetch the project list, ensure a Vibe counterpart for each, build the
// working project set, choose bulk-vs-per-project fetch, run the
// Phase Engine per project, and record SyncRun bookkeeping.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
)

// HulyClient is the subset of huly.Client the Orchestrator needs for
// project and bulk-fetch discovery.
type HulyClient interface {
	ListProjects(ctx context.Context) ([]huly.Project, error)
	ListIssues(ctx context.Context, project string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error)
	ListIssuesBulk(ctx context.Context, projects []string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error)
}

// VibeClient is the subset of vibe.Client the Orchestrator needs to
// ensure a Vibe project exists for every Huly project.
type VibeClient interface {
	ListProjects(ctx context.Context) ([]vibe.Project, error)
	CreateProject(ctx context.Context, name string) (*vibe.Project, error)
}

// Options parameterizes one cycle.
type Options struct {
	ProjectIdentifier string
	SkipEmpty         bool
	Parallel          bool
	MaxWorkers        int
	Incremental       bool
}

// Orchestrator runs one full sync cycle across the project fleet.
type Orchestrator struct {
	store     store.Store
	huly      HulyClient
	vibe      VibeClient
	engineFor func(project *types.Project) *phaseengine.Engine
	log       *slog.Logger
	opts      Options
}

func New(
	st store.Store,
	hulyClient HulyClient,
	vibeClient VibeClient,
	engineFor func(project *types.Project) *phaseengine.Engine,
	log *slog.Logger,
	opts Options,
) *Orchestrator {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	return &Orchestrator{store: st, huly: hulyClient, vibe: vibeClient, engineFor: engineFor, log: log, opts: opts}
}

// CycleOutcome is the aggregated result of one full orchestrator cycle.
type CycleOutcome struct {
	SyncRunID       string
	ProjectsTouched int
	IssuesTouched   int
	Succeeded       int
	Failed          int
	Errored         int
	Results         []*phaseengine.CycleResult
}

// RunCycle runs one full sync cycle: bookkeeping, project set, fetch,
// per-project phases, and final stats.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleOutcome, error) {
	runID, err := o.store.StartSyncRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting sync run: %w", err)
	}

	projects, err := o.buildProjectSet(ctx)
	if err != nil {
		_ = o.store.CompleteSyncRun(ctx, runID, types.SyncRunFailed, store.SyncRunStats{})
		return nil, fmt.Errorf("building project set: %w", err)
	}

	issuesByProject, syncMetaByProject, err := o.fetchIssues(ctx, projects)
	if err != nil {
		_ = o.store.CompleteSyncRun(ctx, runID, types.SyncRunFailed, store.SyncRunStats{})
		return nil, fmt.Errorf("fetching issues: %w", err)
	}

	results := o.runProjects(ctx, projects, issuesByProject, syncMetaByProject)

	outcome := &CycleOutcome{SyncRunID: runID, ProjectsTouched: len(projects), Results: results}
	for _, r := range results {
		outcome.IssuesTouched += r.TotalSynced()
		outcome.Failed += r.TotalErrors()
		if r.Errored {
			outcome.Errored++
		} else {
			outcome.Succeeded++
		}
	}

	status := types.SyncRunCompleted
	if outcome.Errored > 0 && outcome.Succeeded == 0 {
		status = types.SyncRunFailed
	}
	stats := store.SyncRunStats{
		ProjectsTouched: outcome.ProjectsTouched,
		IssuesTouched:   outcome.IssuesTouched,
		Succeeded:       outcome.Succeeded,
		Failed:          outcome.Failed,
		Errored:         outcome.Errored,
	}
	if err := o.store.CompleteSyncRun(ctx, runID, status, stats); err != nil {
		return outcome, fmt.Errorf("completing sync run: %w", err)
	}
	return outcome, nil
}

// buildProjectSet lists Huly projects, ensures each has a Vibe
// counterpart (matched by name, created if missing), upserts them into
// Store, then filters by projectIdentifier/skip-empty.
func (o *Orchestrator) buildProjectSet(ctx context.Context) ([]*types.Project, error) {
	hulyProjects, err := o.huly.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listProjects: %w", err)
	}

	vibeProjects, err := o.vibe.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("vibe listProjects: %w", err)
	}
	vibeByName := make(map[string]string, len(vibeProjects))
	for _, vp := range vibeProjects {
		vibeByName[vp.Name] = vp.ID
	}

	var out []*types.Project
	for _, hp := range hulyProjects {
		vibeID, ok := vibeByName[hp.Name]
		if !ok {
			created, err := o.vibe.CreateProject(ctx, hp.Name)
			if err != nil {
				o.log.ErrorContext(ctx, "failed to ensure vibe project", slog.String("project", hp.Identifier), slog.String("error", err.Error()))
				continue
			}
			vibeID = created.ID
		}

		existing, err := o.store.GetProject(ctx, hp.Identifier)
		if err != nil {
			return nil, fmt.Errorf("getProject %s: %w", hp.Identifier, err)
		}

		project := &types.Project{
			Identifier:     hp.Identifier,
			Name:           hp.Name,
			VibeID:         vibeID,
			FilesystemPath: hp.FilesystemPath,
		}
		if existing != nil {
			project.HulySyncCursor = existing.HulySyncCursor
			project.IsEmpty = existing.IsEmpty
			project.GitURL = existing.GitURL
			project.CreatedAt = existing.CreatedAt
		}
		if err := o.store.UpsertProject(ctx, project); err != nil {
			return nil, fmt.Errorf("upsertProject %s: %w", hp.Identifier, err)
		}

		if !o.matchesFilter(project) {
			continue
		}
		if o.opts.SkipEmpty && project.IsEmpty {
			continue
		}
		out = append(out, project)
	}
	return out, nil
}

// matchesFilter honors projectIdentifier by both id and embedded
// filesystem path.
func (o *Orchestrator) matchesFilter(p *types.Project) bool {
	if o.opts.ProjectIdentifier == "" {
		return true
	}
	return p.Identifier == o.opts.ProjectIdentifier || p.FilesystemPath == o.opts.ProjectIdentifier
}

// fetchIssues splits projects into those with a stored cursor (N) and
// those without (M), issues at most 2 bulk calls, and falls back to
// per-project fetches if a bulk call is unavailable or errors.
func (o *Orchestrator) fetchIssues(ctx context.Context, projects []*types.Project) (map[string][]huly.Issue, map[string]*huly.SyncMeta, error) {
	issuesByProject := make(map[string][]huly.Issue)
	syncMetaByProject := make(map[string]*huly.SyncMeta)

	if !o.opts.Incremental {
		ids := projectIDs(projects)
		result, err := o.huly.ListIssuesBulk(ctx, ids, huly.ListIssuesOptions{IncludeSyncMeta: true})
		if err != nil {
			return o.fetchPerProject(ctx, projects)
		}
		groupIssues(result.Issues, issuesByProject)
		for _, p := range projects {
			syncMetaByProject[p.Identifier] = result.SyncMeta
		}
		return issuesByProject, syncMetaByProject, nil
	}

	var withCursor, withoutCursor []*types.Project
	for _, p := range projects {
		if p.HulySyncCursor != "" {
			withCursor = append(withCursor, p)
		} else {
			withoutCursor = append(withoutCursor, p)
		}
	}

	if len(withCursor) > 0 {
		cursor := minCursor(withCursor)
		result, err := o.huly.ListIssuesBulk(ctx, projectIDs(withCursor), huly.ListIssuesOptions{ModifiedSince: cursor, IncludeSyncMeta: true})
		if err != nil {
			sub, subMeta, subErr := o.fetchPerProject(ctx, withCursor)
			if subErr != nil {
				return nil, nil, subErr
			}
			mergeInto(issuesByProject, sub)
			mergeMetaInto(syncMetaByProject, subMeta)
		} else {
			groupIssues(result.Issues, issuesByProject)
			for _, p := range withCursor {
				syncMetaByProject[p.Identifier] = result.SyncMeta
			}
		}
	}

	if len(withoutCursor) > 0 {
		result, err := o.huly.ListIssuesBulk(ctx, projectIDs(withoutCursor), huly.ListIssuesOptions{IncludeSyncMeta: true})
		if err != nil {
			sub, subMeta, subErr := o.fetchPerProject(ctx, withoutCursor)
			if subErr != nil {
				return nil, nil, subErr
			}
			mergeInto(issuesByProject, sub)
			mergeMetaInto(syncMetaByProject, subMeta)
		} else {
			groupIssues(result.Issues, issuesByProject)
			for _, p := range withoutCursor {
				syncMetaByProject[p.Identifier] = result.SyncMeta
			}
		}
	}

	return issuesByProject, syncMetaByProject, nil
}

func (o *Orchestrator) fetchPerProject(ctx context.Context, projects []*types.Project) (map[string][]huly.Issue, map[string]*huly.SyncMeta, error) {
	issuesByProject := make(map[string][]huly.Issue)
	syncMetaByProject := make(map[string]*huly.SyncMeta)
	for _, p := range projects {
		opts := huly.ListIssuesOptions{IncludeSyncMeta: true}
		if o.opts.Incremental {
			opts.ModifiedSince = p.HulySyncCursor
		}
		result, err := o.huly.ListIssues(ctx, p.Identifier, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("listIssues %s: %w", p.Identifier, err)
		}
		issuesByProject[p.Identifier] = result.Issues
		syncMetaByProject[p.Identifier] = result.SyncMeta
	}
	return issuesByProject, syncMetaByProject, nil
}

// identifierPrefixRe extracts a project's key from an issue identifier
// of the form <PROJECT>-<N> (glossary: "Identifier").
var identifierPrefixRe = regexp.MustCompile(`^([A-Z][A-Z0-9]*)-\d+$`)

func groupIssues(issues []huly.Issue, into map[string][]huly.Issue) {
	for _, issue := range issues {
		m := identifierPrefixRe.FindStringSubmatch(issue.Identifier)
		if m == nil {
			continue
		}
		into[m[1]] = append(into[m[1]], issue)
	}
}

func mergeInto(dst, src map[string][]huly.Issue) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

func mergeMetaInto(dst, src map[string]*huly.SyncMeta) {
	for k, v := range src {
		dst[k] = v
	}
}

func projectIDs(projects []*types.Project) []string {
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.Identifier
	}
	return ids
}

func minCursor(projects []*types.Project) string {
	min := ""
	for _, p := range projects {
		if min == "" || p.HulySyncCursor < min {
			min = p.HulySyncCursor
		}
	}
	return min
}

// runProjects executes Phases 1-4 per project, sequential
// or bounded-parallel depending on Options.Parallel/MaxWorkers.
func (o *Orchestrator) runProjects(ctx context.Context, projects []*types.Project, issuesByProject map[string][]huly.Issue, syncMetaByProject map[string]*huly.SyncMeta) []*phaseengine.CycleResult {
	results := make([]*phaseengine.CycleResult, len(projects))

	run := func(i int) {
		p := projects[i]
		engine := o.engineFor(p)
		result, err := engine.RunProject(ctx, p, issuesByProject[p.Identifier], syncMetaByProject[p.Identifier])
		if err != nil {
			o.log.ErrorContext(ctx, "project cycle failed", slog.String("project", p.Identifier), slog.String("error", err.Error()))
			results[i] = &phaseengine.CycleResult{Project: p.Identifier, Errored: true}
			return
		}
		results[i] = result
		o.afterProjectCycle(ctx, p, result, len(issuesByProject[p.Identifier]))
	}

	if !o.opts.Parallel {
		for i := range projects {
			run(i)
		}
		return results
	}

	sem := make(chan struct{}, o.opts.MaxWorkers)
	var wg sync.WaitGroup
	for i := range projects {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			run(i)
		}(i)
	}
	wg.Wait()
	return results
}

// afterProjectCycle advances the cursor and recomputes the empty flag.
// The cursor advances even when some issues errored, and
// the empty-project flag is recomputed from this cycle's observed issue
// count.
func (o *Orchestrator) afterProjectCycle(ctx context.Context, p *types.Project, result *phaseengine.CycleResult, observedIssueCount int) {
	if result.Cursor != "" {
		if err := o.store.SetHulySyncCursor(ctx, p.Identifier, result.Cursor); err != nil {
			o.log.ErrorContext(ctx, "failed to advance cursor", slog.String("project", p.Identifier), slog.String("error", err.Error()))
		}
	}

	isEmpty := observedIssueCount == 0
	if isEmpty != p.IsEmpty {
		p.IsEmpty = isEmpty
		if err := o.store.UpsertProject(ctx, p); err != nil {
			o.log.ErrorContext(ctx, "failed to update project empty flag", slog.String("project", p.Identifier), slog.String("error", err.Error()))
		}
	}
}
