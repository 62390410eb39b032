package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

func (s *Store) UpsertProject(ctx context.Context, p *types.Project) error {
	l := s.lockFor(p.Identifier)
	l.Lock()
	defer l.Unlock()
	return upsertProject(ctx, s.db, p)
}

func (s *Store) GetProject(ctx context.Context, identifier string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identifier, name, vibe_id, filesystem_path, git_url, huly_sync_cursor,
			letta_last_sync_at, is_empty, created_at, updated_at
		FROM projects WHERE identifier = ?
	`, identifier)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", identifier, err)
	}
	return p, nil
}

func (s *Store) GetAllProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, name, vibe_id, filesystem_path, git_url, huly_sync_cursor,
			letta_last_sync_at, is_empty, created_at, updated_at
		FROM projects ORDER BY identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var p types.Project
	var isEmpty int
	var lettaLastSync, createdAt, updatedAt string
	var vibeID, fsPath, gitURL, cursor sql.NullString

	if err := row.Scan(&p.Identifier, &p.Name, &vibeID, &fsPath, &gitURL, &cursor,
		&lettaLastSync, &isEmpty, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.VibeID = nullableString(vibeID)
	p.FilesystemPath = nullableString(fsPath)
	p.GitURL = nullableString(gitURL)
	p.HulySyncCursor = nullableString(cursor)
	p.LettaLastSyncAt = strToTime(lettaLastSync)
	p.IsEmpty = isEmpty != 0
	p.CreatedAt = strToTime(createdAt)
	p.UpdatedAt = strToTime(updatedAt)
	return &p, nil
}
