package sqlite

import (
	"context"
	"database/sql"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting the write
// helpers in queries.go run unchanged whether or not they're inside a
// WithTx callback.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// txAdapter exposes a single *sql.Tx as a store.TxStore, so every call made
// through it during a WithTx callback shares one transaction.
type txAdapter struct {
	tx *sql.Tx
}

func (t *txAdapter) UpsertProject(ctx context.Context, p *types.Project) error {
	return upsertProject(ctx, t.tx, p)
}

func (t *txAdapter) UpsertIssue(ctx context.Context, row *types.Issue) error {
	return upsertIssue(ctx, t.tx, row)
}

func (t *txAdapter) UpdateParentChild(ctx context.Context, childIdentifier, parentHulyID, parentBeadsID string) error {
	return updateParentChild(ctx, t.tx, childIdentifier, parentHulyID, parentBeadsID)
}

func (t *txAdapter) UpdateSubIssueCount(ctx context.Context, identifier string, n int) error {
	return updateSubIssueCount(ctx, t.tx, identifier, n)
}

func (t *txAdapter) MarkDeletedFromHuly(ctx context.Context, identifier string) error {
	return markDeletedFromHuly(ctx, t.tx, identifier)
}

func (t *txAdapter) SetHulySyncCursor(ctx context.Context, projectIdentifier, iso string) error {
	return setHulySyncCursor(ctx, t.tx, projectIdentifier, iso)
}

func (t *txAdapter) UpsertProjectFile(ctx context.Context, f *types.ProjectFile) error {
	return upsertProjectFile(ctx, t.tx, f)
}

func (t *txAdapter) RecordReconciliationCandidate(ctx context.Context, c *types.ReconciliationCandidate) error {
	return recordReconciliationCandidate(ctx, t.tx, c)
}
