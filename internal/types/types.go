// Package types holds the data model shared across the sync engine: the
// entities owned by Store (Project, Issue, SyncRun, ProjectFile) and the
// status/priority vocabularies used to translate between Huly, Vibe and
// Beads.
package types

import "time"

// Status is the engine's normalized issue status, used internally by the
// Phase Engine and Store. Each RemoteClient maps its own vocabulary to and
// from Status.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Priority is the engine's normalized priority, matching Huly's five-level
// scale.
type Priority int

const (
	PriorityUrgent Priority = 0
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
	PriorityNone   Priority = 4
)

// Project is an entry in the fleet being synchronized.
type Project struct {
	Identifier       string // short key, immutable, unique
	Name             string
	VibeID           string
	FilesystemPath   string
	GitURL           string // resolved lazily
	HulySyncCursor   string // ISO-8601 timestamp of latest modifiedOn observed
	LettaLastSyncAt  time.Time
	IsEmpty          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Issue is the tri-source record joining a Huly issue to its Vibe task and
// Beads issue counterparts.
type Issue struct {
	Identifier        string // Huly identifier, primary key
	ProjectIdentifier string

	HulyID        string
	BeadsIssueID  string
	VibeTaskID    string

	Title        string
	Description  string
	Status       Status
	Priority     Priority
	BeadsStatus  string

	HulyModifiedAt  int64 // epoch ms, last-seen-by-engine
	BeadsModifiedAt int64 // epoch ms, last-seen-by-engine

	ParentHulyID   string
	ParentBeadsID  string
	SubIssueCount  int

	DeletedFromHuly bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasBeadsLink reports whether this issue has a recorded Beads counterpart.
func (i *Issue) HasBeadsLink() bool { return i.BeadsIssueID != "" }

// HasVibeLink reports whether this issue has a recorded Vibe counterpart.
func (i *Issue) HasVibeLink() bool { return i.VibeTaskID != "" }

// SyncRun is one row per full-cycle invocation.
type SyncRun struct {
	ID             string
	StartedAt      time.Time
	EndedAt        time.Time
	Status         SyncRunStatus
	ProjectsTouched int
	IssuesTouched   int
	Succeeded       int
	Failed          int
	Errored         int
}

// SyncRunStatus is the terminal or in-flight state of a SyncRun.
type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunFailed    SyncRunStatus = "failed"
)

// ProjectFile is auxiliary tracking surfaced only to the (out-of-scope)
// indexer collaborator; not part of the sync contract itself.
type ProjectFile struct {
	ProjectIdentifier string
	RelativePath      string
	ContentHash       string
	Size              int64
	UploadedAt        time.Time
}

// ReconciliationCandidate is recorded when a consistency violation cannot
// be resolved within the current cycle: a Store mapping pointed at a
// counterpart that no longer exists in the snapshot, and re-linking by
// title failed too.
type ReconciliationCandidate struct {
	ID                string
	ProjectIdentifier string
	Identifier        string
	Reason            string
	DetectedAt        time.Time
	Resolved          bool
}

// Cursor is the per-project incremental-fetch watermark.
type Cursor struct {
	ProjectIdentifier string
	LatestModified    string // ISO-8601
}
