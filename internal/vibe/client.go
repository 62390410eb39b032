// Package vibe is the typed client for the Vibe task-board surface. The
// {success, data, message} envelope every Vibe response comes back in is
// unwrapped at the client boundary; callers never see it.
package vibe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/oculairmedia/huly-vibe-sync/internal/httpx"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

const component = "vibe"

// Client is the Vibe RemoteClient.
type Client struct {
	http *httpx.Client
}

func NewClient(baseURL, apiToken string, metrics *observability.Metrics) *Client {
	headers := map[string]string{}
	if apiToken != "" {
		headers["Authorization"] = "Bearer " + apiToken
	}
	return &Client{http: httpx.NewClient(component, baseURL, metrics, headers)}
}

// doEnvelope issues one call and unwraps the {success, data, message}
// envelope, decoding data into out when present. Transport-level errors
// (including a 404, classified KindNotFound by httpx) pass through
// unchanged; a 2xx response whose envelope reports success=false is
// surfaced as a validation-classified error carrying the envelope's
// message.
func (c *Client) doEnvelope(ctx context.Context, method, path, operation string, body, out interface{}) error {
	var env envelope
	if err := c.http.Do(ctx, method, path, operation, body, &env); err != nil {
		return err
	}
	if !env.Success {
		return types.NewClassifiedError(types.KindValidation, component, operation, 0, fmt.Errorf("%s", env.Message))
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return types.NewClassifiedError(types.KindValidation, component, operation, 0, err)
	}
	return nil
}

// Projects

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.doEnvelope(ctx, "GET", "/api/projects", "listProjects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	var out Project
	if err := c.doEnvelope(ctx, "POST", "/api/projects", "createProject", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id, name string) (*Project, error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	var out Project
	if err := c.doEnvelope(ctx, "PATCH", "/api/projects/"+url.PathEscape(id), "updateProject", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doEnvelope(ctx, "DELETE", "/api/projects/"+url.PathEscape(id), "deleteProject", nil, nil)
}

// Tasks

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	var out []Task
	path := "/api/projects/" + url.PathEscape(projectID) + "/tasks"
	if err := c.doEnvelope(ctx, "GET", path, "listTasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask returns (nil, nil) when the task does not exist.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.doEnvelope(ctx, "GET", "/api/tasks/"+url.PathEscape(id), "getTask", nil, &out); err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, projectID, title, description string) (*Task, error) {
	body := struct {
		ProjectID   string `json:"projectId"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}{ProjectID: projectID, Title: title, Description: description}
	var out Task
	if err := c.doEnvelope(ctx, "POST", "/api/tasks", "createTask", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]interface{}) (*Task, error) {
	var out Task
	if err := c.doEnvelope(ctx, "PATCH", "/api/tasks/"+url.PathEscape(id), "updateTask", fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doEnvelope(ctx, "DELETE", "/api/tasks/"+url.PathEscape(id), "deleteTask", nil, nil)
}

// Task attempts

func (c *Client) StartTaskAttempt(ctx context.Context, taskID string) (*TaskAttempt, error) {
	path := "/api/tasks/" + url.PathEscape(taskID) + "/attempts"
	var out TaskAttempt
	if err := c.doEnvelope(ctx, "POST", path, "startTaskAttempt", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTaskAttempts(ctx context.Context, taskID string) ([]TaskAttempt, error) {
	path := "/api/tasks/" + url.PathEscape(taskID) + "/attempts"
	var out []TaskAttempt
	if err := c.doEnvelope(ctx, "GET", path, "listTaskAttempts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTaskAttempt(ctx context.Context, id string) (*TaskAttempt, error) {
	var out TaskAttempt
	if err := c.doEnvelope(ctx, "GET", "/api/attempts/"+url.PathEscape(id), "getTaskAttempt", nil, &out); err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) MergeTaskAttempt(ctx context.Context, id string) error {
	return c.doEnvelope(ctx, "POST", "/api/attempts/"+url.PathEscape(id)+"/merge", "mergeTaskAttempt", nil, nil)
}

func (c *Client) FollowupTaskAttempt(ctx context.Context, id, instructions string) (*TaskAttempt, error) {
	body := struct {
		Instructions string `json:"instructions"`
	}{Instructions: instructions}
	var out TaskAttempt
	if err := c.doEnvelope(ctx, "POST", "/api/attempts/"+url.PathEscape(id)+"/followup", "followupTaskAttempt", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Execution processes

func (c *Client) GetExecutionProcess(ctx context.Context, id string) (*ExecutionProcess, error) {
	var out ExecutionProcess
	if err := c.doEnvelope(ctx, "GET", "/api/processes/"+url.PathEscape(id), "getExecutionProcess", nil, &out); err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) StopExecutionProcess(ctx context.Context, id string) error {
	return c.doEnvelope(ctx, "POST", "/api/processes/"+url.PathEscape(id)+"/stop", "stopExecutionProcess", nil, nil)
}

func (c *Client) GetExecutionProcessLogs(ctx context.Context, id string) (string, error) {
	var out struct {
		Logs string `json:"logs"`
	}
	if err := c.doEnvelope(ctx, "GET", "/api/processes/"+url.PathEscape(id)+"/logs", "getExecutionProcessLogs", nil, &out); err != nil {
		return "", err
	}
	return out.Logs, nil
}

// Dev server

func (c *Client) StartDevServer(ctx context.Context, taskID string) (*DevServer, error) {
	path := "/api/tasks/" + url.PathEscape(taskID) + "/dev-server/start"
	var out DevServer
	if err := c.doEnvelope(ctx, "POST", path, "startDevServer", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StopDevServer(ctx context.Context, taskID string) error {
	path := "/api/tasks/" + url.PathEscape(taskID) + "/dev-server/stop"
	return c.doEnvelope(ctx, "POST", path, "stopDevServer", nil, nil)
}
