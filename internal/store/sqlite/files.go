package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

func (s *Store) UpsertProjectFile(ctx context.Context, f *types.ProjectFile) error {
	return upsertProjectFile(ctx, s.db, f)
}

func (s *Store) GetProjectFiles(ctx context.Context, projectIdentifier string) ([]*types.ProjectFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_identifier, relative_path, content_hash, size, uploaded_at
		FROM project_files WHERE project_identifier = ? ORDER BY relative_path
	`, projectIdentifier)
	if err != nil {
		return nil, fmt.Errorf("list project files for %s: %w", projectIdentifier, err)
	}
	defer rows.Close()

	var out []*types.ProjectFile
	for rows.Next() {
		var f types.ProjectFile
		var hash, uploadedAt string
		if err := rows.Scan(&f.ProjectIdentifier, &f.RelativePath, &hash, &f.Size, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan project file: %w", err)
		}
		f.ContentHash = hash
		f.UploadedAt = strToTime(uploadedAt)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Store) RecordReconciliationCandidate(ctx context.Context, c *types.ReconciliationCandidate) error {
	return recordReconciliationCandidate(ctx, s.db, c)
}

func (s *Store) GetOpenReconciliationCandidates(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_identifier, identifier, reason, detected_at, resolved
		FROM reconciliation_candidates WHERE resolved = 0 ORDER BY detected_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list open reconciliation candidates: %w", err)
	}
	defer rows.Close()

	var out []*types.ReconciliationCandidate
	for rows.Next() {
		var c types.ReconciliationCandidate
		var detectedAt string
		var resolved int
		var reason sql.NullString
		if err := rows.Scan(&c.ID, &c.ProjectIdentifier, &c.Identifier, &reason, &detectedAt, &resolved); err != nil {
			return nil, fmt.Errorf("scan reconciliation candidate: %w", err)
		}
		c.Reason = nullableString(reason)
		c.DetectedAt = strToTime(detectedAt)
		c.Resolved = resolved != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}
