package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreBasics(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"}))
	require.NoError(t, s.UpsertIssue(ctx, &types.Issue{
		Identifier:        "PROJ-1",
		ProjectIdentifier: "PROJ",
		Title:             "Something",
		Status:            types.StatusTodo,
	}))

	p, err := s.GetProject(ctx, "PROJ")
	require.NoError(t, err)
	require.Equal(t, "Project One", p.Name)

	issues, err := s.GetProjectIssues(ctx, "PROJ")
	require.NoError(t, err)
	require.Len(t, issues, 1)
}

func TestMemoryStoreWithTxRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"}))

	err := s.WithTx(ctx, func(ctx context.Context, tx store.TxStore) error {
		if err := tx.UpsertIssue(ctx, &types.Issue{Identifier: "PROJ-1", ProjectIdentifier: "PROJ", Title: "t"}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	issue, err := s.GetIssue(ctx, "PROJ-1")
	require.NoError(t, err)
	require.Nil(t, issue)
}

func TestMemoryStoreWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.TxStore) error {
		return tx.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project One"})
	})
	require.NoError(t, err)

	p, err := s.GetProject(ctx, "PROJ")
	require.NoError(t, err)
	require.NotNil(t, p)
}
