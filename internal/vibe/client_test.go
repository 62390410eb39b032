package vibe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/stretchr/testify/require"
)

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	m, err := observability.NewMetrics(observability.NewLogger("text", -4))
	require.NoError(t, err)
	return m
}

func TestListTasksUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/projects/PROJ/tasks", r.URL.Path)
		data, _ := json.Marshal([]Task{{ID: "1", Title: "a task"}})
		_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	tasks, err := c.ListTasks(t.Context(), "PROJ")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "a task", tasks[0].Title)
}

func TestEnvelopeFailureSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: "task not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	_, err := c.GetTask(t.Context(), "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "task not found")
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProjectID string `json:"projectId"`
			Title     string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		data, _ := json.Marshal(Task{ID: "1", ProjectID: body.ProjectID, Title: body.Title})
		_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	task, err := c.CreateTask(t.Context(), "PROJ", "PROJ-1: Fix it", "desc\n\n---\nHuly Issue: PROJ-1")
	require.NoError(t, err)
	require.Equal(t, "PROJ-1: Fix it", task.Title)
}

func TestGetTaskHTTP404ReturnsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testMetrics(t))
	task, err := c.GetTask(t.Context(), "missing")
	require.NoError(t, err)
	require.Nil(t, task)
}
