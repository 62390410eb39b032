// Package store defines the Store contract: embedded relational state
// for projects, issues, file-tracking, sync runs and cursors, with
// upserts, lookups, cursor get/set and transactional batch writes.
package store

import (
	"context"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// Store is the engine's sole shared mutable resource. Implementations
// must make per-identifier writes atomic and must make a single Tx's
// effects all-or-nothing visible to the next caller.
type Store interface {
	UpsertProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, identifier string) (*types.Project, error)
	GetAllProjects(ctx context.Context) ([]*types.Project, error)

	UpsertIssue(ctx context.Context, row *types.Issue) error
	GetIssue(ctx context.Context, identifier string) (*types.Issue, error)
	GetProjectIssues(ctx context.Context, projectIdentifier string) ([]*types.Issue, error)
	GetAllIssues(ctx context.Context) ([]*types.Issue, error)

	UpdateParentChild(ctx context.Context, childIdentifier, parentHulyID, parentBeadsID string) error
	UpdateSubIssueCount(ctx context.Context, identifier string, n int) error
	MarkDeletedFromHuly(ctx context.Context, identifier string) error

	GetHulySyncCursor(ctx context.Context, projectIdentifier string) (string, error)
	SetHulySyncCursor(ctx context.Context, projectIdentifier, iso string) error

	StartSyncRun(ctx context.Context) (string, error)
	CompleteSyncRun(ctx context.Context, id string, status types.SyncRunStatus, stats SyncRunStats) error

	UpsertProjectFile(ctx context.Context, f *types.ProjectFile) error
	GetProjectFiles(ctx context.Context, projectIdentifier string) ([]*types.ProjectFile, error)

	RecordReconciliationCandidate(ctx context.Context, c *types.ReconciliationCandidate) error
	GetOpenReconciliationCandidates(ctx context.Context) ([]*types.ReconciliationCandidate, error)

	// WithTx runs fn inside a single transaction; every Store call made
	// through the *TxStore passed to fn is part of that transaction, and
	// either all of fn's effects land or none do.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error

	Close() error
}

// TxStore is the subset of Store usable inside a WithTx callback. It is
// the same interface shape as Store minus WithTx/Close, since nested
// transactions are not supported.
type TxStore interface {
	UpsertProject(ctx context.Context, p *types.Project) error
	UpsertIssue(ctx context.Context, row *types.Issue) error
	UpdateParentChild(ctx context.Context, childIdentifier, parentHulyID, parentBeadsID string) error
	UpdateSubIssueCount(ctx context.Context, identifier string, n int) error
	MarkDeletedFromHuly(ctx context.Context, identifier string) error
	SetHulySyncCursor(ctx context.Context, projectIdentifier, iso string) error
	UpsertProjectFile(ctx context.Context, f *types.ProjectFile) error
	RecordReconciliationCandidate(ctx context.Context, c *types.ReconciliationCandidate) error
}

// SyncRunStats is the count block recorded on SyncRun completion.
type SyncRunStats struct {
	ProjectsTouched int
	IssuesTouched   int
	Succeeded       int
	Failed          int
	Errored         int
}
