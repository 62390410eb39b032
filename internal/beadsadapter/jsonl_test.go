package beadsadapter

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
)

func testAdapter(t *testing.T, dryRun bool) *Adapter {
	t.Helper()
	metrics, err := observability.NewMetrics(observability.NewLogger("text", -4))
	require.NoError(t, err)
	return New(t.TempDir(), 0, metrics, dryRun)
}

func writeJSONL(t *testing.T, dir string, lines string) {
	t.Helper()
	beadsDir := filepath.Join(dir, ".beads")
	require.NoError(t, os.MkdirAll(beadsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(beadsDir, "issues.jsonl"), []byte(lines), 0o644))
}

func TestListIssuesReadsJSONL(t *testing.T) {
	a := testAdapter(t, false)
	writeJSONL(t, a.Dir, `{"id":"bd-1","title":"One","status":"open","priority":2}
{"id":"bd-2","title":"Two","status":"closed","priority":1,"labels":["huly:cancelled"]}

{"id":"bd-3","title":"Three","status":"open","priority":0,"updated_at":1700000000000}
`)

	all, err := a.ListIssues("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"huly:cancelled"}, all[1].Labels)
	assert.Equal(t, int64(1700000000000), all[2].UpdatedAt)

	open, err := a.ListIssues("open")
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestListIssuesToleratesTornTrailingLine(t *testing.T) {
	a := testAdapter(t, false)
	writeJSONL(t, a.Dir, `{"id":"bd-1","title":"One","status":"open"}
{"id":"bd-2","ti`)

	all, err := a.ListIssues("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bd-1", all[0].ID)
}

func TestListIssuesMissingFileErrors(t *testing.T) {
	a := testAdapter(t, false)
	_, err := a.ListIssues("")
	require.Error(t, err)
}

func TestListIssuesSQLitePreferred(t *testing.T) {
	a := testAdapter(t, false)
	beadsDir := filepath.Join(a.Dir, ".beads")
	require.NoError(t, os.MkdirAll(beadsDir, 0o755))

	db, err := sql.Open("sqlite", filepath.Join(beadsDir, "beads.db"))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE issues (
		id TEXT PRIMARY KEY, title TEXT, description TEXT,
		status TEXT, priority INTEGER, issue_type TEXT, updated_at TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE labels (issue_id TEXT, label TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO issues VALUES
		('bd-1', 'One', 'Body', 'open', 2, 'task', '2026-07-01T00:00:00Z'),
		('bd-2', 'Two', '', 'closed', 1, 'bug', '')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO labels VALUES ('bd-1', 'huly:backlog')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A divergent JSONL proves SQLite is the preferred source.
	writeJSONL(t, a.Dir, `{"id":"stale","title":"stale","status":"open"}`+"\n")

	rows, err := a.ListIssuesWithFallback(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bd-1", rows[0].ID)
	assert.Equal(t, []string{"huly:backlog"}, rows[0].Labels)
	assert.NotZero(t, rows[0].UpdatedAt)
	assert.Zero(t, rows[1].UpdatedAt)

	open, err := a.ListIssuesSQLite(context.Background(), "open")
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestListIssuesFallsBackToJSONLWithoutDB(t *testing.T) {
	a := testAdapter(t, false)
	writeJSONL(t, a.Dir, `{"id":"bd-1","title":"One","status":"open"}`+"\n")

	rows, err := a.ListIssuesWithFallback(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bd-1", rows[0].ID)
}

func TestUpdateIssueRejectsUnknownField(t *testing.T) {
	a := testAdapter(t, true)
	err := a.UpdateIssue(context.Background(), "bd-1", "assignee", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the updatable vocabulary")
}

func TestDryRunSuppressesCLI(t *testing.T) {
	a := testAdapter(t, true)
	err := a.UpdateIssue(context.Background(), "bd-1", "status", "closed")
	require.Error(t, err)
	assert.True(t, IsDryRunSkip(err))
}

func TestInitIsIdempotent(t *testing.T) {
	a := testAdapter(t, false)
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	custom := []byte(`{"v":1}` + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir, ".beads", "metadata.json"), custom, 0o644))

	require.NoError(t, a.Init(ctx))
	got, err := os.ReadFile(filepath.Join(a.Dir, ".beads", "metadata.json"))
	require.NoError(t, err)
	assert.Equal(t, custom, got, "existing files untouched")

	attrs, err := os.ReadFile(filepath.Join(a.Dir, ".gitattributes"))
	require.NoError(t, err)
	assert.Contains(t, string(attrs), ".beads/issues.jsonl merge=beads")

	// .gitattributes entry not duplicated on re-init.
	require.NoError(t, a.Init(ctx))
	attrs2, err := os.ReadFile(filepath.Join(a.Dir, ".gitattributes"))
	require.NoError(t, err)
	assert.Equal(t, attrs, attrs2)
}
