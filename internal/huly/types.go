package huly

// Project is a Huly-side project.
type Project struct {
	ID             string `json:"id"`
	Identifier     string `json:"identifier"`
	Name           string `json:"name"`
	FilesystemPath string `json:"filesystemPath,omitempty"`
}

// Issue is a Huly-side issue as returned by listIssues/getIssue.
type Issue struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	ParentID    string `json:"parentId,omitempty"`
	ModifiedOn  int64  `json:"modifiedOn"`
}

// SyncMeta accompanies a listIssues response when includeSyncMeta is set
//: the cursor watermark to persist after a successful cycle.
type SyncMeta struct {
	LatestModified string `json:"latestModified"`
	ServerTime     string `json:"serverTime"`
}

// ListIssuesOptions parameterizes listIssues/listIssuesBulk.
type ListIssuesOptions struct {
	ModifiedSince   string
	Limit           int
	IncludeSyncMeta bool
}

// ListIssuesResult is the {issues, syncMeta, count} envelope.
type ListIssuesResult struct {
	Issues   []Issue   `json:"issues"`
	SyncMeta *SyncMeta `json:"syncMeta,omitempty"`
	Count    int       `json:"count"`
}

// CreateIssueInput is the payload for createIssue.
type CreateIssueInput struct {
	ProjectIdentifier string `json:"projectIdentifier"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Status            string `json:"status,omitempty"`
	Priority          int    `json:"priority,omitempty"`
	ParentID          string `json:"parentId,omitempty"`
}
