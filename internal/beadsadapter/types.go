package beadsadapter

// Issue is one Beads-side issue row as read from issues.jsonl or the
// `bd ... --json` CLI output.
type Issue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"` // open|in_progress|blocked|deferred|closed
	Priority    int      `json:"priority"`
	Type        string   `json:"issue_type,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Deleted     bool     `json:"deleted,omitempty"`
	UpdatedAt   int64    `json:"updated_at,omitempty"` // epoch ms, used by Phase 3 conflict resolution
}

// CreateIssueInput is the payload for CreateIssue.
type CreateIssueInput struct {
	Title       string
	Description string
	Priority    int
	Type        string
	Labels      []string
}

// updatableFields is the closed vocabulary bd update accepts.
var updatableFields = map[string]bool{
	"status":       true,
	"priority":     true,
	"title":        true,
	"type":         true,
	"add-label":    true,
	"remove-label": true,
}
