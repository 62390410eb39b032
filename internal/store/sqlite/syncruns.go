package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// StartSyncRun inserts a running SyncRun row and returns its id.
func (s *Store) StartSyncRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started_at, status) VALUES (?, ?, ?)
	`, id, timeToStr(time.Now()), string(types.SyncRunRunning))
	if err != nil {
		return "", fmt.Errorf("start sync run: %w", err)
	}
	return id, nil
}

// CompleteSyncRun records the terminal status and counters for a SyncRun.
func (s *Store) CompleteSyncRun(ctx context.Context, id string, status types.SyncRunStatus, stats store.SyncRunStats) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET ended_at = ?, status = ?, projects_touched = ?, issues_touched = ?,
			succeeded = ?, failed = ?, errored = ?
		WHERE id = ?
	`, timeToStr(time.Now()), string(status), stats.ProjectsTouched, stats.IssuesTouched,
		stats.Succeeded, stats.Failed, stats.Errored, id)
	if err != nil {
		return fmt.Errorf("complete sync run %s: %w", id, err)
	}
	return nil
}
