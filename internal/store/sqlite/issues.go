package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

func (s *Store) UpsertIssue(ctx context.Context, row *types.Issue) error {
	l := s.lockFor(row.Identifier)
	l.Lock()
	defer l.Unlock()
	return upsertIssue(ctx, s.db, row)
}

func (s *Store) GetIssue(ctx context.Context, identifier string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueSelect+` WHERE identifier = ?`, identifier)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", identifier, err)
	}
	return issue, nil
}

func (s *Store) GetProjectIssues(ctx context.Context, projectIdentifier string) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelect+` WHERE project_identifier = ? ORDER BY identifier`, projectIdentifier)
	if err != nil {
		return nil, fmt.Errorf("list issues for project %s: %w", projectIdentifier, err)
	}
	return scanIssues(rows)
}

func (s *Store) GetAllIssues(ctx context.Context) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelect+` ORDER BY project_identifier, identifier`)
	if err != nil {
		return nil, fmt.Errorf("list all issues: %w", err)
	}
	return scanIssues(rows)
}

func (s *Store) UpdateParentChild(ctx context.Context, childIdentifier, parentHulyID, parentBeadsID string) error {
	l := s.lockFor(childIdentifier)
	l.Lock()
	defer l.Unlock()
	return updateParentChild(ctx, s.db, childIdentifier, parentHulyID, parentBeadsID)
}

func (s *Store) UpdateSubIssueCount(ctx context.Context, identifier string, n int) error {
	l := s.lockFor(identifier)
	l.Lock()
	defer l.Unlock()
	return updateSubIssueCount(ctx, s.db, identifier, n)
}

func (s *Store) MarkDeletedFromHuly(ctx context.Context, identifier string) error {
	l := s.lockFor(identifier)
	l.Lock()
	defer l.Unlock()
	return markDeletedFromHuly(ctx, s.db, identifier)
}

const issueSelect = `
	SELECT identifier, project_identifier, huly_id, beads_issue_id, vibe_task_id, title,
		description, status, priority, beads_status, huly_modified_at, beads_modified_at,
		parent_huly_id, parent_beads_id, sub_issue_count, deleted_from_huly, created_at, updated_at
	FROM issues`

func scanIssue(row rowScanner) (*types.Issue, error) {
	var i types.Issue
	var status, beadsStatus, parentHuly, parentBeads, createdAt, updatedAt string
	var hulyID, beadsID, vibeTaskID, description sql.NullString
	var priority, subIssueCount, deleted int

	if err := row.Scan(&i.Identifier, &i.ProjectIdentifier, &hulyID, &beadsID, &vibeTaskID,
		&i.Title, &description, &status, &priority, &beadsStatus, &i.HulyModifiedAt,
		&i.BeadsModifiedAt, &parentHuly, &parentBeads, &subIssueCount, &deleted,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	i.HulyID = nullableString(hulyID)
	i.BeadsIssueID = nullableString(beadsID)
	i.VibeTaskID = nullableString(vibeTaskID)
	i.Description = nullableString(description)
	i.Status = types.Status(status)
	i.Priority = types.Priority(priority)
	i.BeadsStatus = beadsStatus
	i.ParentHulyID = parentHuly
	i.ParentBeadsID = parentBeads
	i.SubIssueCount = subIssueCount
	i.DeletedFromHuly = deleted != 0
	i.CreatedAt = strToTime(createdAt)
	i.UpdatedAt = strToTime(updatedAt)
	return &i, nil
}

func scanIssues(rows *sql.Rows) ([]*types.Issue, error) {
	defer rows.Close()
	var out []*types.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
