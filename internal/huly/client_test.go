package huly

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/stretchr/testify/require"
)

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	m, err := observability.NewMetrics(observability.NewLogger("text", -4))
	require.NoError(t, err)
	return m
}

func TestListIssuesIncludesSyncMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/PROJ/issues", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("includeSyncMeta"))
		require.Equal(t, "2026-01-01T00:00:00Z", r.URL.Query().Get("modifiedSince"))
		_ = json.NewEncoder(w).Encode(ListIssuesResult{
			Issues:   []Issue{{ID: "1", Identifier: "PROJ-1", Title: "t", ModifiedOn: 42}},
			SyncMeta: &SyncMeta{LatestModified: "2026-02-02T00:00:00Z"},
			Count:    1,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	result, err := c.ListIssues(t.Context(), "PROJ", ListIssuesOptions{
		ModifiedSince:   "2026-01-01T00:00:00Z",
		IncludeSyncMeta: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "2026-02-02T00:00:00Z", result.SyncMeta.LatestModified)
}

func TestGetIssueNotFoundReturnsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	issue, err := c.GetIssue(t.Context(), "missing")
	require.NoError(t, err)
	require.Nil(t, issue)
}

func TestCreateIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in CreateIssueInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		require.Equal(t, "Fix the thing", in.Title)
		_ = json.NewEncoder(w).Encode(Issue{ID: "1", Identifier: "PROJ-1", Title: in.Title})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", testMetrics(t))
	issue, err := c.CreateIssue(t.Context(), CreateIssueInput{Title: "Fix the thing"})
	require.NoError(t, err)
	require.Equal(t, "PROJ-1", issue.Identifier)
}

func TestPatchIssueNotFoundPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	_, err := c.PatchIssue(t.Context(), "gone", map[string]interface{}{"title": "x"})
	require.Error(t, err)
	require.True(t, types.IsNotFound(err), "mutating calls surface the 404 so callers can tombstone")
}

func TestMoveIssueNotFoundPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	err := c.MoveIssue(t.Context(), "gone", nil)
	require.Error(t, err)
	require.True(t, types.IsNotFound(err))
}
