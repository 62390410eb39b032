package beadsadapter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// dbPath locates the Beads SQLite database under .beads/. The canonical
// name is beads.db; older layouts used issues.db, so any *.db file is
// accepted when the canonical one is absent.
func (a *Adapter) dbPath() (string, error) {
	beadsDir := filepath.Join(a.Dir, ".beads")
	canonical := filepath.Join(beadsDir, "beads.db")
	if _, err := os.Stat(canonical); err == nil {
		return canonical, nil
	}
	matches, err := filepath.Glob(filepath.Join(beadsDir, "*.db"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no beads database under %s", beadsDir)
	}
	return matches[0], nil
}

// ListIssuesSQLite reads issues straight out of the Beads SQLite
// database, the preferred snapshot source. The connection is opened
// read-only so a concurrently running bd daemon never sees us as a
// competing writer.
func (a *Adapter) ListIssuesSQLite(ctx context.Context, status string) ([]Issue, error) {
	path, err := a.dbPath()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening beads db: %w", err)
	}
	defer db.Close()

	query := `SELECT id, title, description, status, priority, issue_type, updated_at FROM issues`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying beads issues: %w", err)
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		var issue Issue
		var description, issueType, updatedAt sql.NullString
		if err := rows.Scan(&issue.ID, &issue.Title, &description, &issue.Status, &issue.Priority, &issueType, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning beads issue: %w", err)
		}
		issue.Description = description.String
		issue.Type = issueType.String
		issue.UpdatedAt = parseBeadsTimestamp(updatedAt.String)
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachLabels(ctx, db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachLabels fills each issue's Labels from the labels join table,
// tolerating databases old enough to predate it.
func attachLabels(ctx context.Context, db *sql.DB, issues []Issue) error {
	rows, err := db.QueryContext(ctx, `SELECT issue_id, label FROM labels`)
	if err != nil {
		return nil // schema without labels; leave Labels empty
	}
	defer rows.Close()

	byIssue := make(map[string][]string)
	for rows.Next() {
		var issueID, label string
		if err := rows.Scan(&issueID, &label); err != nil {
			return err
		}
		byIssue[issueID] = append(byIssue[issueID], label)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range issues {
		issues[i].Labels = byIssue[issues[i].ID]
	}
	return nil
}

// parseBeadsTimestamp converts the db's RFC3339 updated_at into epoch
// milliseconds, matching the JSONL representation used by conflict
// resolution. Unparsable values read as 0 (never-seen).
func parseBeadsTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
