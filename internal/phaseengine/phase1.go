package phaseengine

import (
	"context"
	"log/slog"

	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/mappers"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// phase1HulyToVibe pushes Huly state onto Vibe. It returns the phase result
// plus the set of Vibe task IDs it touched, so Phase 2 can skip them in
// the same cycle.
func (e *Engine) phase1HulyToVibe(ctx context.Context, log *slog.Logger, project *types.Project, snap *Snapshot) (PhaseResult, map[string]bool) {
	var result PhaseResult
	touched := make(map[string]bool)

	for i := range snap.HulyIssues {
		issue := &snap.HulyIssues[i]
		if err := e.syncOneHulyIssueToVibe(ctx, project, snap, issue, &result, touched); err != nil {
			result.addError(issue.Identifier, "phase1", err)
			log.ErrorContext(ctx, "phase1 sync failed", slog.String("issue", issue.Identifier), slog.String("error", err.Error()))
		}
	}
	return result, touched
}

func (e *Engine) syncOneHulyIssueToVibe(ctx context.Context, project *types.Project, snap *Snapshot, issue *huly.Issue, result *PhaseResult, touched map[string]bool) error {
	stored := snap.storedByIdentifier[issue.Identifier]
	if stored != nil && stored.DeletedFromHuly {
		result.Skipped++
		return nil // tombstoned, never re-created
	}

	var task *vibeTaskRef
	// Tier 1: stored vibe_task_id.
	if stored != nil && stored.VibeTaskID != "" {
		if t, ok := snap.vibeByID[stored.VibeTaskID]; ok {
			task = &vibeTaskRef{ID: t.ID, Title: t.Title, Description: t.Description, Status: t.Status}
		}
	}
	// Tier 2: scan Vibe tasks for the footer reference. Link-before-create
	// keeps reruns from minting duplicate tasks.
	if task == nil {
		if t := snap.findVibeTaskByFooter(issue.Identifier); t != nil {
			task = &vibeTaskRef{ID: t.ID, Title: t.Title, Description: t.Description, Status: t.Status}
		}
	}

	parentIdentifier := issue.ParentID
	if task == nil {
		// Tier 3: create.
		title := issue.Identifier + ": " + issue.Title
		description := mappers.RenderFooter(issue.Description, issue.Identifier, parentIdentifier)
		created, err := e.vibe.CreateTask(ctx, project.VibeID, title, description)
		if err != nil {
			return err
		}
		touched[created.ID] = true
		result.Synced++
		return e.upsertTriSourceRow(ctx, project, issue, created.ID, stored)
	}

	touched[task.ID] = true

	fields := map[string]interface{}{}
	wantStatus := string(mappers.HulyToVibeStatus(statusFromHuly(issue.Status)))
	if task.Status != wantStatus {
		fields["status"] = wantStatus
	}
	// Description changes propagate only if the Huly description differs
	// from Vibe's description with the footer stripped.
	if issue.Description != mappers.StripFooter(task.Description) {
		fields["description"] = mappers.RenderFooter(issue.Description, issue.Identifier, parentIdentifier)
	}

	if len(fields) == 0 {
		result.Skipped++
		return e.upsertTriSourceRow(ctx, project, issue, task.ID, stored)
	}

	if _, err := e.vibe.UpdateTask(ctx, task.ID, fields); err != nil {
		return err
	}
	result.Synced++
	return e.upsertTriSourceRow(ctx, project, issue, task.ID, stored)
}

// vibeTaskRef is the subset of a vibe.Task the Phase 1/2 comparison logic
// needs, decoupled from whichever snapshot index produced it (stored
// lookup vs footer scan return different concrete pointers).
type vibeTaskRef struct {
	ID          string
	Title       string
	Description string
	Status      string
}

// upsertTriSourceRow merges the Huly side of an issue into Store,
// preserving any existing Beads link. Cross-system ids are immutable
// once set: this only ever writes a vibe_task_id when the
// stored row does not already have one equal to it, never replaces an
// existing different id.
func (e *Engine) upsertTriSourceRow(ctx context.Context, project *types.Project, issue *huly.Issue, vibeTaskID string, stored *types.Issue) error {
	row := &types.Issue{
		Identifier:        issue.Identifier,
		ProjectIdentifier: project.Identifier,
		HulyID:            issue.ID,
		Title:             issue.Title,
		Description:       issue.Description,
		Status:            statusFromHuly(issue.Status),
		Priority:          priorityFromHuly(issue.Priority),
		VibeTaskID:        vibeTaskID,
		ParentHulyID:      issue.ParentID,
		HulyModifiedAt:    issue.ModifiedOn,
	}
	if stored != nil {
		row.BeadsIssueID = stored.BeadsIssueID
		row.BeadsStatus = stored.BeadsStatus
		row.BeadsModifiedAt = stored.BeadsModifiedAt
		row.ParentBeadsID = stored.ParentBeadsID
		row.SubIssueCount = stored.SubIssueCount
		row.DeletedFromHuly = stored.DeletedFromHuly
		if stored.VibeTaskID != "" {
			row.VibeTaskID = stored.VibeTaskID
		}
	}
	return e.store.UpsertIssue(ctx, row)
}

func statusFromHuly(s string) types.Status {
	switch s {
	case "Backlog":
		return types.StatusBacklog
	case "Todo":
		return types.StatusTodo
	case "In Progress":
		return types.StatusInProgress
	case "In Review":
		return types.StatusInReview
	case "Done":
		return types.StatusDone
	case "Cancelled":
		return types.StatusCancelled
	default:
		return types.StatusTodo
	}
}

func hulyStatusLabel(s types.Status) string {
	switch s {
	case types.StatusBacklog:
		return "Backlog"
	case types.StatusTodo:
		return "Todo"
	case types.StatusInProgress:
		return "In Progress"
	case types.StatusInReview:
		return "In Review"
	case types.StatusDone:
		return "Done"
	case types.StatusCancelled:
		return "Cancelled"
	default:
		return "Todo"
	}
}

func priorityFromHuly(p int) types.Priority {
	switch p {
	case 0:
		return types.PriorityUrgent
	case 1:
		return types.PriorityHigh
	case 2:
		return types.PriorityMedium
	case 3:
		return types.PriorityLow
	default:
		return types.PriorityNone
	}
}
