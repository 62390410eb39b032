package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/store/memory"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
)

type bulkCall struct {
	projects []string
	opts     huly.ListIssuesOptions
}

type fakeHuly struct {
	projects []huly.Project
	issues   map[string][]huly.Issue // by project identifier
	syncMeta *huly.SyncMeta

	bulkErr    error
	bulkCalls  []bulkCall
	perProject []string
}

func (f *fakeHuly) ListProjects(ctx context.Context) ([]huly.Project, error) {
	return f.projects, nil
}

func (f *fakeHuly) ListIssues(ctx context.Context, project string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error) {
	f.perProject = append(f.perProject, project)
	return &huly.ListIssuesResult{Issues: f.issues[project], SyncMeta: f.syncMeta}, nil
}

func (f *fakeHuly) ListIssuesBulk(ctx context.Context, projects []string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error) {
	f.bulkCalls = append(f.bulkCalls, bulkCall{projects: projects, opts: opts})
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	var all []huly.Issue
	for _, p := range projects {
		all = append(all, f.issues[p]...)
	}
	return &huly.ListIssuesResult{Issues: all, SyncMeta: f.syncMeta}, nil
}

type fakeVibe struct {
	projects []vibe.Project
	created  []string
}

func (f *fakeVibe) ListProjects(ctx context.Context) ([]vibe.Project, error) {
	return f.projects, nil
}

func (f *fakeVibe) CreateProject(ctx context.Context, name string) (*vibe.Project, error) {
	f.created = append(f.created, name)
	p := vibe.Project{ID: "vp-" + name, Name: name}
	f.projects = append(f.projects, p)
	return &p, nil
}

// engine fakes: the orchestrator runs a real phaseengine.Engine, so the
// engine-level collaborators are stubbed out with empty surfaces.

type stubEngineVibe struct{}

func (stubEngineVibe) ListTasks(ctx context.Context, projectID string) ([]vibe.Task, error) {
	return nil, nil
}
func (stubEngineVibe) CreateTask(ctx context.Context, projectID, title, description string) (*vibe.Task, error) {
	return &vibe.Task{ID: "vt-1", Title: title, Description: description, Status: "todo"}, nil
}
func (stubEngineVibe) UpdateTask(ctx context.Context, id string, fields map[string]interface{}) (*vibe.Task, error) {
	return &vibe.Task{ID: id}, nil
}

type stubEngineHuly struct{}

func (stubEngineHuly) ListIssues(ctx context.Context, project string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error) {
	return &huly.ListIssuesResult{}, nil
}
func (stubEngineHuly) GetIssue(ctx context.Context, id string) (*huly.Issue, error) { return nil, nil }
func (stubEngineHuly) CreateIssue(ctx context.Context, in huly.CreateIssueInput) (*huly.Issue, error) {
	return &huly.Issue{ID: "h-1", Identifier: in.ProjectIdentifier + "-1", Title: in.Title}, nil
}
func (stubEngineHuly) PatchIssue(ctx context.Context, id string, partial map[string]interface{}) (*huly.Issue, error) {
	return &huly.Issue{ID: id}, nil
}
func (stubEngineHuly) MoveIssue(ctx context.Context, id string, parentID *string) error { return nil }

type stubBeads struct{ creates int }

func (s *stubBeads) ListIssuesWithFallback(ctx context.Context, status string) ([]beadsadapter.Issue, error) {
	return nil, nil
}
func (s *stubBeads) CreateIssue(ctx context.Context, in beadsadapter.CreateIssueInput) (*beadsadapter.Issue, error) {
	s.creates++
	return &beadsadapter.Issue{ID: fmt.Sprintf("bd-%d", s.creates), Title: in.Title, Status: "open"}, nil
}
func (s *stubBeads) UpdateIssue(ctx context.Context, id, field, value string) error { return nil }
func (s *stubBeads) DepAdd(ctx context.Context, child, parent string) error         { return nil }
func (s *stubBeads) DepRemove(ctx context.Context, child, parent string) error      { return nil }
func (s *stubBeads) CurrentParent(ctx context.Context, id string) (string, error)   { return "", nil }
func (s *stubBeads) SyncAndCommit(ctx context.Context, push bool) error             { return nil }

func newTestOrchestrator(t *testing.T, fh *fakeHuly, fv *fakeVibe, st *memory.Store, opts Options) *Orchestrator {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics, err := observability.NewMetrics(log)
	require.NoError(t, err)

	engineFor := func(p *types.Project) *phaseengine.Engine {
		return phaseengine.New(st, stubEngineHuly{}, stubEngineVibe{}, nil,
			func(*types.Project) phaseengine.BeadsAdapter { return &stubBeads{} },
			metrics, log, phaseengine.Options{DryRun: true})
	}
	return New(st, fh, fv, engineFor, log, opts)
}

func TestRunCycleEnsuresVibeProjectsAndAdvancesCursor(t *testing.T) {
	st := memory.New()
	fh := &fakeHuly{
		projects: []huly.Project{{ID: "1", Identifier: "ACME", Name: "Acme"}},
		issues: map[string][]huly.Issue{
			"ACME": {{ID: "h-1", Identifier: "ACME-1", Title: "One", Status: "Todo", ModifiedOn: 42}},
		},
		syncMeta: &huly.SyncMeta{LatestModified: "2026-07-01T00:00:00Z"},
	}
	fv := &fakeVibe{}

	o := newTestOrchestrator(t, fh, fv, st, Options{Incremental: true})
	outcome, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme"}, fv.created, "missing Vibe project created by name")
	assert.Equal(t, 1, outcome.ProjectsTouched)
	assert.NotEmpty(t, outcome.SyncRunID)

	cursor, err := st.GetHulySyncCursor(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-01T00:00:00Z", cursor)
}

func TestFetchSplitsCursorGroups(t *testing.T) {
	// At most 2 bulk calls: one with modifiedSince = min(cursors)
	// for the cursored group, one full fetch for the rest.
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.UpsertProject(ctx, &types.Project{Identifier: "AAA", Name: "A", HulySyncCursor: "2026-06-01T00:00:00Z"}))
	require.NoError(t, st.UpsertProject(ctx, &types.Project{Identifier: "BBB", Name: "B", HulySyncCursor: "2026-05-01T00:00:00Z"}))

	fh := &fakeHuly{
		projects: []huly.Project{
			{ID: "1", Identifier: "AAA", Name: "A"},
			{ID: "2", Identifier: "BBB", Name: "B"},
			{ID: "3", Identifier: "CCC", Name: "C"},
		},
		issues:   map[string][]huly.Issue{},
		syncMeta: &huly.SyncMeta{},
	}
	fv := &fakeVibe{projects: []vibe.Project{{ID: "v1", Name: "A"}, {ID: "v2", Name: "B"}, {ID: "v3", Name: "C"}}}

	o := newTestOrchestrator(t, fh, fv, st, Options{Incremental: true})
	_, err := o.RunCycle(ctx)
	require.NoError(t, err)

	require.Len(t, fh.bulkCalls, 2)
	withCursor := fh.bulkCalls[0]
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, withCursor.projects)
	assert.Equal(t, "2026-05-01T00:00:00Z", withCursor.opts.ModifiedSince, "min cursor of the group")
	assert.ElementsMatch(t, []string{"CCC"}, fh.bulkCalls[1].projects)
	assert.Empty(t, fh.bulkCalls[1].opts.ModifiedSince)
}

func TestBulkErrorFallsBackToPerProject(t *testing.T) {
	st := memory.New()
	fh := &fakeHuly{
		projects: []huly.Project{{ID: "1", Identifier: "ACME", Name: "Acme"}},
		issues:   map[string][]huly.Issue{},
		syncMeta: &huly.SyncMeta{},
		bulkErr:  fmt.Errorf("bulk endpoint unavailable"),
	}
	fv := &fakeVibe{projects: []vibe.Project{{ID: "v1", Name: "Acme"}}}

	o := newTestOrchestrator(t, fh, fv, st, Options{Incremental: true})
	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ACME"}, fh.perProject)
}

func TestSkipEmptyAndIdentifierFilter(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.UpsertProject(ctx, &types.Project{Identifier: "EMPTY", Name: "Empty", IsEmpty: true}))

	fh := &fakeHuly{
		projects: []huly.Project{
			{ID: "1", Identifier: "ACME", Name: "Acme"},
			{ID: "2", Identifier: "EMPTY", Name: "Empty"},
		},
		issues:   map[string][]huly.Issue{},
		syncMeta: &huly.SyncMeta{},
	}
	fv := &fakeVibe{projects: []vibe.Project{{ID: "v1", Name: "Acme"}, {ID: "v2", Name: "Empty"}}}

	o := newTestOrchestrator(t, fh, fv, st, Options{SkipEmpty: true, Incremental: true})
	outcome, err := o.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ProjectsTouched, "empty project skipped")

	o = newTestOrchestrator(t, fh, fv, st, Options{ProjectIdentifier: "ACME", Incremental: true})
	outcome, err = o.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ProjectsTouched, "filter honors identifier")
}

func TestEmptyFlagRecomputedFromObservedIssues(t *testing.T) {
	st := memory.New()
	fh := &fakeHuly{
		projects: []huly.Project{{ID: "1", Identifier: "ACME", Name: "Acme"}},
		issues:   map[string][]huly.Issue{},
		syncMeta: &huly.SyncMeta{},
	}
	fv := &fakeVibe{projects: []vibe.Project{{ID: "v1", Name: "Acme"}}}

	o := newTestOrchestrator(t, fh, fv, st, Options{Incremental: true})
	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	p, err := st.GetProject(context.Background(), "ACME")
	require.NoError(t, err)
	assert.True(t, p.IsEmpty)
}

func TestGroupIssuesByIdentifierPrefix(t *testing.T) {
	into := map[string][]huly.Issue{}
	groupIssues([]huly.Issue{
		{Identifier: "ACME-1"},
		{Identifier: "ACME-2"},
		{Identifier: "OTHER-9"},
		{Identifier: "not-an-identifier"},
	}, into)
	assert.Len(t, into["ACME"], 2)
	assert.Len(t, into["OTHER"], 1)
	assert.Len(t, into, 2)
}
