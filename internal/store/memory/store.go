// Package memory is an in-process store.Store implementation used by the
// Phase Engine's and orchestrator's unit tests in place of a real sqlite
// file.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

type Store struct {
	mu sync.Mutex

	projects     map[string]*types.Project
	issues       map[string]*types.Issue
	files        map[string]map[string]*types.ProjectFile
	candidates   map[string]*types.ReconciliationCandidate
	syncRuns     map[string]*types.SyncRun
}

func New() *Store {
	return &Store{
		projects:   make(map[string]*types.Project),
		issues:     make(map[string]*types.Issue),
		files:      make(map[string]map[string]*types.ProjectFile),
		candidates: make(map[string]*types.ReconciliationCandidate),
		syncRuns:   make(map[string]*types.SyncRun),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) UpsertProject(ctx context.Context, p *types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.Identifier] = &cp
	return nil
}

func (s *Store) GetProject(ctx context.Context, identifier string) (*types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[identifier]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetAllProjects(ctx context.Context) ([]*types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// UpsertIssue merges by identifier with the same partial-row semantics as
// the sqlite implementation: empty incoming strings leave the stored
// column unchanged, and a set tombstone is never cleared.
func (s *Store) UpsertIssue(ctx context.Context, row *types.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	if existing, ok := s.issues[row.Identifier]; ok {
		if cp.HulyID == "" {
			cp.HulyID = existing.HulyID
		}
		if cp.BeadsIssueID == "" {
			cp.BeadsIssueID = existing.BeadsIssueID
		}
		if cp.VibeTaskID == "" {
			cp.VibeTaskID = existing.VibeTaskID
		}
		if cp.Title == "" {
			cp.Title = existing.Title
		}
		if cp.Status == "" {
			cp.Status = existing.Status
		}
		if cp.BeadsStatus == "" {
			cp.BeadsStatus = existing.BeadsStatus
		}
		if existing.DeletedFromHuly {
			cp.DeletedFromHuly = true
		}
	}
	s.issues[row.Identifier] = &cp
	return nil
}

func (s *Store) GetIssue(ctx context.Context, identifier string) (*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.issues[identifier]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (s *Store) GetProjectIssues(ctx context.Context, projectIdentifier string) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Issue
	for _, i := range s.issues {
		if i.ProjectIdentifier == projectIdentifier {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetAllIssues(ctx context.Context) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Issue, 0, len(s.issues))
	for _, i := range s.issues {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateParentChild(ctx context.Context, childIdentifier, parentHulyID, parentBeadsID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.issues[childIdentifier]
	if !ok {
		return fmt.Errorf("no such issue %s", childIdentifier)
	}
	i.ParentHulyID = parentHulyID
	i.ParentBeadsID = parentBeadsID
	return nil
}

func (s *Store) UpdateSubIssueCount(ctx context.Context, identifier string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.issues[identifier]
	if !ok {
		return fmt.Errorf("no such issue %s", identifier)
	}
	i.SubIssueCount = n
	return nil
}

func (s *Store) MarkDeletedFromHuly(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.issues[identifier]
	if !ok {
		return fmt.Errorf("no such issue %s", identifier)
	}
	i.DeletedFromHuly = true
	return nil
}

func (s *Store) GetHulySyncCursor(ctx context.Context, projectIdentifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectIdentifier]
	if !ok {
		return "", nil
	}
	return p.HulySyncCursor, nil
}

func (s *Store) SetHulySyncCursor(ctx context.Context, projectIdentifier, iso string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectIdentifier]
	if !ok {
		return fmt.Errorf("no such project %s", projectIdentifier)
	}
	p.HulySyncCursor = iso
	return nil
}

func (s *Store) StartSyncRun(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.syncRuns[id] = &types.SyncRun{ID: id, StartedAt: time.Now(), Status: types.SyncRunRunning}
	return id, nil
}

func (s *Store) CompleteSyncRun(ctx context.Context, id string, status types.SyncRunStatus, stats store.SyncRunStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.syncRuns[id]
	if !ok {
		return fmt.Errorf("no such sync run %s", id)
	}
	r.EndedAt = time.Now()
	r.Status = status
	r.ProjectsTouched = stats.ProjectsTouched
	r.IssuesTouched = stats.IssuesTouched
	r.Succeeded = stats.Succeeded
	r.Failed = stats.Failed
	r.Errored = stats.Errored
	return nil
}

func (s *Store) UpsertProjectFile(ctx context.Context, f *types.ProjectFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPath, ok := s.files[f.ProjectIdentifier]
	if !ok {
		byPath = make(map[string]*types.ProjectFile)
		s.files[f.ProjectIdentifier] = byPath
	}
	cp := *f
	byPath[f.RelativePath] = &cp
	return nil
}

func (s *Store) GetProjectFiles(ctx context.Context, projectIdentifier string) ([]*types.ProjectFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.ProjectFile
	for _, f := range s.files[projectIdentifier] {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) RecordReconciliationCandidate(ctx context.Context, c *types.ReconciliationCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.candidates[c.ID] = &cp
	return nil
}

func (s *Store) GetOpenReconciliationCandidates(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.ReconciliationCandidate
	for _, c := range s.candidates {
		if !c.Resolved {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// WithTx snapshots the projects, issues, files and candidates maps (the
// ones TxStore can write; syncRuns is not included) before running fn and
// restores them if fn returns an error, giving the fake the same all-or-nothing
// visibility the sqlite store gets from a real *sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.TxStore) error) error {
	s.mu.Lock()
	projectsSnap := cloneProjects(s.projects)
	issuesSnap := cloneIssues(s.issues)
	filesSnap := cloneFiles(s.files)
	candidatesSnap := cloneCandidates(s.candidates)
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.projects = projectsSnap
		s.issues = issuesSnap
		s.files = filesSnap
		s.candidates = candidatesSnap
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneProjects(m map[string]*types.Project) map[string]*types.Project {
	out := make(map[string]*types.Project, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneIssues(m map[string]*types.Issue) map[string]*types.Issue {
	out := make(map[string]*types.Issue, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneFiles(m map[string]map[string]*types.ProjectFile) map[string]map[string]*types.ProjectFile {
	out := make(map[string]map[string]*types.ProjectFile, len(m))
	for proj, byPath := range m {
		inner := make(map[string]*types.ProjectFile, len(byPath))
		for path, f := range byPath {
			cp := *f
			inner[path] = &cp
		}
		out[proj] = inner
	}
	return out
}

func cloneCandidates(m map[string]*types.ReconciliationCandidate) map[string]*types.ReconciliationCandidate {
	out := make(map[string]*types.ReconciliationCandidate, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}
