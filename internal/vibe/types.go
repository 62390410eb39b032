package vibe

import "encoding/json"

// envelope is the {success, data, message} wrapper every Vibe response
// comes back in; Client unwraps it before the caller ever sees a
// response body. data is kept raw so it can be decoded into whatever
// shape the caller expects (object, array, or absent on an error).
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Project is a Vibe-side project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a Vibe-side task, the counterpart of a Huly issue.
type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// TaskAttempt is one execution attempt against a Task.
type TaskAttempt struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// ExecutionProcess is a running or finished process backing a TaskAttempt.
type ExecutionProcess struct {
	ID        string `json:"id"`
	AttemptID string `json:"attemptId"`
	Status    string `json:"status"`
}

// DevServer is the per-task dev-server control surface.
type DevServer struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
	Status string `json:"status"`
}
