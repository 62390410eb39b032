package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetHulySyncCursor returns the stored ISO-8601 watermark for a project, or
// "" if the project has never completed an incremental fetch.
func (s *Store) GetHulySyncCursor(ctx context.Context, projectIdentifier string) (string, error) {
	var cursor sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT huly_sync_cursor FROM projects WHERE identifier = ?`, projectIdentifier).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor for %s: %w", projectIdentifier, err)
	}
	return nullableString(cursor), nil
}

func (s *Store) SetHulySyncCursor(ctx context.Context, projectIdentifier, iso string) error {
	l := s.lockFor(projectIdentifier)
	l.Lock()
	defer l.Unlock()
	return setHulySyncCursor(ctx, s.db, projectIdentifier, iso)
}
