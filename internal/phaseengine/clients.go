package phaseengine

import (
	"context"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
)

// HulyClient is the subset of huly.Client the Phase Engine depends on,
// narrowed to an interface so tests can substitute a fake.
type HulyClient interface {
	ListIssues(ctx context.Context, project string, opts huly.ListIssuesOptions) (*huly.ListIssuesResult, error)
	GetIssue(ctx context.Context, id string) (*huly.Issue, error)
	CreateIssue(ctx context.Context, in huly.CreateIssueInput) (*huly.Issue, error)
	PatchIssue(ctx context.Context, id string, partial map[string]interface{}) (*huly.Issue, error)
	MoveIssue(ctx context.Context, id string, parentID *string) error
}

// VibeClient is the subset of vibe.Client the Phase Engine depends on.
type VibeClient interface {
	ListTasks(ctx context.Context, projectID string) ([]vibe.Task, error)
	CreateTask(ctx context.Context, projectID, title, description string) (*vibe.Task, error)
	UpdateTask(ctx context.Context, id string, fields map[string]interface{}) (*vibe.Task, error)
}

// BeadsAdapter is the subset of beadsadapter.Adapter the Phase Engine
// depends on for Phase 3 and its Git commit/push tail.
type BeadsAdapter interface {
	ListIssuesWithFallback(ctx context.Context, status string) ([]beadsadapter.Issue, error)
	CreateIssue(ctx context.Context, in beadsadapter.CreateIssueInput) (*beadsadapter.Issue, error)
	UpdateIssue(ctx context.Context, id, field, value string) error
	DepAdd(ctx context.Context, child, parent string) error
	DepRemove(ctx context.Context, child, parent string) error
	CurrentParent(ctx context.Context, id string) (string, error)
	SyncAndCommit(ctx context.Context, push bool) error
}

// DocSyncer is the documentation platform collaborator invoked by
// Phase 4 with (project, lastExport, changedFiles).
type DocSyncer interface {
	ExportChanges(ctx context.Context, projectIdentifier, lastExport string, changedFiles []string) error
}

// NoopDocSyncer satisfies DocSyncer without doing anything, the default
// when no documentation platform is configured.
type NoopDocSyncer struct{}

func (NoopDocSyncer) ExportChanges(context.Context, string, string, []string) error { return nil }
