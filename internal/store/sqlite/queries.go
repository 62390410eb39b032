package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// The functions in this file are the write-path bodies shared by Store
// (outside a transaction) and txAdapter (inside one), so both entry
// points run identical SQL.

func upsertProject(ctx context.Context, q querier, p *types.Project) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (identifier, name, vibe_id, filesystem_path, git_url,
			huly_sync_cursor, letta_last_sync_at, is_empty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			name = excluded.name,
			vibe_id = excluded.vibe_id,
			filesystem_path = excluded.filesystem_path,
			git_url = excluded.git_url,
			huly_sync_cursor = excluded.huly_sync_cursor,
			letta_last_sync_at = excluded.letta_last_sync_at,
			is_empty = excluded.is_empty,
			updated_at = excluded.updated_at
	`, p.Identifier, p.Name, p.VibeID, p.FilesystemPath, p.GitURL,
		p.HulySyncCursor, timeToStr(p.LettaLastSyncAt), boolToInt(p.IsEmpty), timeToStr(p.CreatedAt), timeToStr(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.Identifier, err)
	}
	return nil
}

// upsertIssue merges by identifier. Empty strings on the incoming row
// leave the stored column unchanged (partial-row upserts), and a set
// tombstone is never cleared by a later upsert.
func upsertIssue(ctx context.Context, q querier, row *types.Issue) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO issues (identifier, project_identifier, huly_id, beads_issue_id, vibe_task_id,
			title, description, status, priority, beads_status, huly_modified_at, beads_modified_at,
			parent_huly_id, parent_beads_id, sub_issue_count, deleted_from_huly, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			huly_id = CASE WHEN excluded.huly_id != '' THEN excluded.huly_id ELSE issues.huly_id END,
			beads_issue_id = CASE WHEN excluded.beads_issue_id != '' THEN excluded.beads_issue_id ELSE issues.beads_issue_id END,
			vibe_task_id = CASE WHEN excluded.vibe_task_id != '' THEN excluded.vibe_task_id ELSE issues.vibe_task_id END,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE issues.title END,
			description = excluded.description,
			status = CASE WHEN excluded.status != '' THEN excluded.status ELSE issues.status END,
			priority = excluded.priority,
			beads_status = CASE WHEN excluded.beads_status != '' THEN excluded.beads_status ELSE issues.beads_status END,
			huly_modified_at = excluded.huly_modified_at,
			beads_modified_at = excluded.beads_modified_at,
			parent_huly_id = excluded.parent_huly_id,
			parent_beads_id = excluded.parent_beads_id,
			sub_issue_count = excluded.sub_issue_count,
			deleted_from_huly = MAX(issues.deleted_from_huly, excluded.deleted_from_huly),
			updated_at = excluded.updated_at
	`, row.Identifier, row.ProjectIdentifier, row.HulyID, row.BeadsIssueID, row.VibeTaskID,
		row.Title, row.Description, string(row.Status), int(row.Priority), row.BeadsStatus,
		row.HulyModifiedAt, row.BeadsModifiedAt, row.ParentHulyID, row.ParentBeadsID,
		row.SubIssueCount, boolToInt(row.DeletedFromHuly), timeToStr(row.CreatedAt), timeToStr(row.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert issue %s: %w", row.Identifier, err)
	}
	return nil
}

func updateParentChild(ctx context.Context, q querier, childIdentifier, parentHulyID, parentBeadsID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE issues SET parent_huly_id = ?, parent_beads_id = ? WHERE identifier = ?
	`, parentHulyID, parentBeadsID, childIdentifier)
	if err != nil {
		return fmt.Errorf("update parent for %s: %w", childIdentifier, err)
	}
	return nil
}

func updateSubIssueCount(ctx context.Context, q querier, identifier string, n int) error {
	_, err := q.ExecContext(ctx, `UPDATE issues SET sub_issue_count = ? WHERE identifier = ?`, n, identifier)
	if err != nil {
		return fmt.Errorf("update sub issue count for %s: %w", identifier, err)
	}
	return nil
}

func markDeletedFromHuly(ctx context.Context, q querier, identifier string) error {
	_, err := q.ExecContext(ctx, `UPDATE issues SET deleted_from_huly = 1 WHERE identifier = ?`, identifier)
	if err != nil {
		return fmt.Errorf("mark deleted %s: %w", identifier, err)
	}
	return nil
}

func setHulySyncCursor(ctx context.Context, q querier, projectIdentifier, iso string) error {
	_, err := q.ExecContext(ctx, `UPDATE projects SET huly_sync_cursor = ? WHERE identifier = ?`, iso, projectIdentifier)
	if err != nil {
		return fmt.Errorf("set cursor for %s: %w", projectIdentifier, err)
	}
	return nil
}

func upsertProjectFile(ctx context.Context, q querier, f *types.ProjectFile) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO project_files (project_identifier, relative_path, content_hash, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_identifier, relative_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at
	`, f.ProjectIdentifier, f.RelativePath, f.ContentHash, f.Size, timeToStr(f.UploadedAt))
	if err != nil {
		return fmt.Errorf("upsert project file %s/%s: %w", f.ProjectIdentifier, f.RelativePath, err)
	}
	return nil
}

func recordReconciliationCandidate(ctx context.Context, q querier, c *types.ReconciliationCandidate) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO reconciliation_candidates (id, project_identifier, identifier, reason, detected_at, resolved)
		VALUES (?, ?, ?, ?, ?, 0)
	`, c.ID, c.ProjectIdentifier, c.Identifier, c.Reason, timeToStr(c.DetectedAt))
	if err != nil {
		return fmt.Errorf("record reconciliation candidate %s: %w", c.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// timeToStr renders t as RFC3339 for storage, leaving the zero time as an
// empty column rather than "0001-01-01T00:00:00Z".
func timeToStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// strToTime parses an RFC3339 column back into time.Time, returning the
// zero value for an empty or unparseable string.
func strToTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
