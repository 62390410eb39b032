package phaseengine

import (
	"context"
	"log/slog"

	"github.com/oculairmedia/huly-vibe-sync/internal/mappers"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
)

// phase2VibeToHuly pushes Vibe state back onto Huly: for each Vibe task not
// touched by Phase 1 this cycle, extract the Huly identifier from the
// footer and propagate a status/description change back to Huly.
func (e *Engine) phase2VibeToHuly(ctx context.Context, log *slog.Logger, project *types.Project, snap *Snapshot, touchedByPhase1 map[string]bool) PhaseResult {
	var result PhaseResult

	for i := range snap.VibeTasks {
		task := &snap.VibeTasks[i]
		if touchedByPhase1[task.ID] {
			result.Skipped++
			continue // phase 1 just wrote this task; no flap-back
		}
		if err := e.syncOneVibeTaskToHuly(ctx, project, snap, task, &result); err != nil {
			result.addError(task.ID, "phase2", err)
			log.ErrorContext(ctx, "phase2 sync failed", slog.String("task", task.ID), slog.String("error", err.Error()))
		}
	}
	return result
}

func (e *Engine) syncOneVibeTaskToHuly(ctx context.Context, project *types.Project, snap *Snapshot, task *vibe.Task, result *PhaseResult) error {
	identifier := mappers.ExtractHulyIdentifier(task.Description)
	if identifier == "" {
		result.Skipped++
		return nil // no footer reference, nothing to propagate
	}

	stored := snap.storedByIdentifier[identifier]
	if stored != nil && stored.DeletedFromHuly {
		result.Skipped++
		return nil // tombstoned
	}

	hulyIssue := snap.findHulyByIdentifier(identifier)
	if hulyIssue == nil {
		result.Skipped++
		return nil // referenced issue not present in this cycle's snapshot
	}

	patch := map[string]interface{}{}

	wantStatus := mappers.VibeToHulyStatus(vibe2Status(task.Status))
	if statusFromHuly(hulyIssue.Status) != wantStatus {
		patch["status"] = hulyStatusLabel(wantStatus)
	}

	vibeBody := mappers.StripFooter(task.Description)
	if vibeBody != hulyIssue.Description {
		patch["description"] = vibeBody
	}

	parentIdentifier := mappers.ExtractParentIdentifier(task.Description)
	if parentIdentifier != "" && parentIdentifier != hulyIssue.ParentID {
		patch["parentId"] = parentIdentifier
	}

	if len(patch) == 0 {
		result.Skipped++
		return e.refreshVibeLink(ctx, project, identifier, task.ID, stored)
	}

	if _, err := e.huly.PatchIssue(ctx, hulyIssue.ID, patch); err != nil {
		return err
	}
	result.Synced++
	return e.refreshVibeLink(ctx, project, identifier, task.ID, stored)
}

// refreshVibeLink records the vibe_task_id on Store if it was discovered
// only via the footer scan (tier 2 link) rather than already stored.
func (e *Engine) refreshVibeLink(ctx context.Context, project *types.Project, identifier, vibeTaskID string, stored *types.Issue) error {
	if stored != nil && stored.VibeTaskID != "" {
		return nil // already linked; cross-system ids are never replaced
	}
	row := &types.Issue{ProjectIdentifier: project.Identifier, Identifier: identifier, VibeTaskID: vibeTaskID}
	if stored != nil {
		cp := *stored
		cp.VibeTaskID = vibeTaskID
		row = &cp
	}
	return e.store.UpsertIssue(ctx, row)
}

func vibe2Status(s string) mappers.VibeStatus {
	switch mappers.VibeStatus(s) {
	case mappers.VibeTodo, mappers.VibeInProgress, mappers.VibeInReview, mappers.VibeDone, mappers.VibeCancelled:
		return mappers.VibeStatus(s)
	default:
		return mappers.VibeTodo
	}
}
