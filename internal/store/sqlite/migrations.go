package sqlite

import (
	"database/sql"
	"fmt"
)

// migration is one forward-only schema change, applied in numbered
// order.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS projects (
				identifier TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				vibe_id TEXT,
				filesystem_path TEXT,
				git_url TEXT,
				huly_sync_cursor TEXT,
				letta_last_sync_at TEXT,
				is_empty INTEGER NOT NULL DEFAULT 0,
				created_at TEXT,
				updated_at TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS issues (
				identifier TEXT PRIMARY KEY,
				project_identifier TEXT NOT NULL,
				huly_id TEXT,
				beads_issue_id TEXT,
				vibe_task_id TEXT,
				title TEXT NOT NULL,
				description TEXT,
				status TEXT,
				priority INTEGER,
				beads_status TEXT,
				huly_modified_at INTEGER,
				beads_modified_at INTEGER,
				parent_huly_id TEXT,
				parent_beads_id TEXT,
				sub_issue_count INTEGER NOT NULL DEFAULT 0,
				deleted_from_huly INTEGER NOT NULL DEFAULT 0,
				created_at TEXT,
				updated_at TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_issues_project_beads
				ON issues(project_identifier, beads_issue_id)
				WHERE beads_issue_id IS NOT NULL AND beads_issue_id != ''`,
			`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_identifier)`,
			`CREATE TABLE IF NOT EXISTS sync_runs (
				id TEXT PRIMARY KEY,
				started_at TEXT,
				ended_at TEXT,
				status TEXT,
				projects_touched INTEGER NOT NULL DEFAULT 0,
				issues_touched INTEGER NOT NULL DEFAULT 0,
				succeeded INTEGER NOT NULL DEFAULT 0,
				failed INTEGER NOT NULL DEFAULT 0,
				errored INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS project_files (
				project_identifier TEXT NOT NULL,
				relative_path TEXT NOT NULL,
				content_hash TEXT,
				size INTEGER,
				uploaded_at TEXT,
				PRIMARY KEY (project_identifier, relative_path)
			)`,
			`CREATE TABLE IF NOT EXISTS reconciliation_candidates (
				id TEXT PRIMARY KEY,
				project_identifier TEXT NOT NULL,
				identifier TEXT NOT NULL,
				reason TEXT,
				detected_at TEXT,
				resolved INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var applied int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&applied); err != nil {
		return fmt.Errorf("reading schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= applied {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
