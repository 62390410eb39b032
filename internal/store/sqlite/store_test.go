package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProjectRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &types.Project{
		Identifier:     "PROJ",
		Name:           "Project One",
		FilesystemPath: "/srv/proj",
		IsEmpty:        false,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.UpsertProject(ctx, p))

	got, err := s.GetProject(ctx, "PROJ")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, p.FilesystemPath, got.FilesystemPath)
	require.False(t, got.IsEmpty)

	missing, err := s.GetProject(ctx, "NOPE")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestIssueUpsertAndCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"}))

	issue := &types.Issue{
		Identifier:        "PROJ-1",
		ProjectIdentifier: "PROJ",
		HulyID:            "huly-1",
		Title:             "Fix the thing",
		Status:            types.StatusTodo,
		Priority:          types.PriorityHigh,
		HulyModifiedAt:    1000,
	}
	require.NoError(t, s.UpsertIssue(ctx, issue))

	got, err := s.GetIssue(ctx, "PROJ-1")
	require.NoError(t, err)
	require.Equal(t, "Fix the thing", got.Title)
	require.Equal(t, types.StatusTodo, got.Status)

	issue.Title = "Fix the thing properly"
	issue.BeadsIssueID = "bd-1"
	require.NoError(t, s.UpsertIssue(ctx, issue))

	got, err = s.GetIssue(ctx, "PROJ-1")
	require.NoError(t, err)
	require.Equal(t, "Fix the thing properly", got.Title)
	require.Equal(t, "bd-1", got.BeadsIssueID)

	all, err := s.GetProjectIssues(ctx, "PROJ")
	require.NoError(t, err)
	require.Len(t, all, 1)

	cursor, err := s.GetHulySyncCursor(ctx, "PROJ")
	require.NoError(t, err)
	require.Empty(t, cursor)

	require.NoError(t, s.SetHulySyncCursor(ctx, "PROJ", "2026-07-29T00:00:00Z"))
	cursor, err = s.GetHulySyncCursor(ctx, "PROJ")
	require.NoError(t, err)
	require.Equal(t, "2026-07-29T00:00:00Z", cursor)
}

func TestWithTxCommitsAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.TxStore) error {
		if err := tx.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"}); err != nil {
			return err
		}
		return tx.UpsertIssue(ctx, &types.Issue{
			Identifier:        "PROJ-1",
			ProjectIdentifier: "PROJ",
			Title:             "Tx issue",
			Status:            types.StatusBacklog,
		})
	})
	require.NoError(t, err)

	issue, err := s.GetIssue(ctx, "PROJ-1")
	require.NoError(t, err)
	require.NotNil(t, issue)
	require.Equal(t, "Tx issue", issue.Title)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.TxStore) error {
		if err := tx.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"}); err != nil {
			return err
		}
		return assertError{}
	})
	require.Error(t, err)

	got, err := s.GetProject(ctx, "PROJ")
	require.NoError(t, err)
	require.Nil(t, got)
}

type assertError struct{}

func (assertError) Error() string { return "forced rollback" }

func TestSyncRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.StartSyncRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	err = s.CompleteSyncRun(ctx, id, types.SyncRunCompleted, store.SyncRunStats{
		ProjectsTouched: 2,
		IssuesTouched:   5,
		Succeeded:       5,
	})
	require.NoError(t, err)
}

func TestReconciliationCandidates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordReconciliationCandidate(ctx, &types.ReconciliationCandidate{
		ID:                "rc-1",
		ProjectIdentifier: "PROJ",
		Identifier:        "PROJ-1",
		Reason:            "beads counterpart vanished",
		DetectedAt:        time.Now(),
	}))

	open, err := s.GetOpenReconciliationCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "beads counterpart vanished", open[0].Reason)
}
