package phaseengine

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/mappers"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// phase3aHulyToBeads pushes Huly state onto Beads. It returns the phase
// result plus the set of Beads issue IDs it wrote to or created this
// cycle (the "Phase 3a touched" set), so 3b does not immediately
// overwrite a fresh Huly write.
func (e *Engine) phase3aHulyToBeads(ctx context.Context, log *slog.Logger, project *types.Project, snap *Snapshot) (PhaseResult, map[string]bool) {
	var result PhaseResult
	touched := make(map[string]bool)

	for i := range snap.HulyIssues {
		issue := &snap.HulyIssues[i]
		if err := e.syncOneHulyIssueToBeads(ctx, project, snap, issue, &result, touched); err != nil {
			if isNotFound(err) {
				// Tombstone: a classified not-found error from this
				// issue's sync marks the row deleted. 3a itself makes no
				// Huly call; Huly 404s on writes are handled in 3b.
				if markErr := e.store.MarkDeletedFromHuly(ctx, issue.Identifier); markErr == nil {
					result.Skipped++
					continue
				}
			}
			result.addError(issue.Identifier, "phase3a", err)
			log.ErrorContext(ctx, "phase3a sync failed", slog.String("issue", issue.Identifier), slog.String("error", err.Error()))
		}
	}
	return result, touched
}

func isNotFound(err error) bool { return types.IsNotFound(err) }

func (e *Engine) syncOneHulyIssueToBeads(ctx context.Context, project *types.Project, snap *Snapshot, issue *huly.Issue, result *PhaseResult, touched map[string]bool) error {
	stored := snap.storedByIdentifier[issue.Identifier]
	if stored != nil && stored.DeletedFromHuly {
		result.Skipped++
		return nil
	}

	if stored != nil && stored.BeadsIssueID != "" {
		beadsIssue, ok := snap.beadsByID[stored.BeadsIssueID]
		if !ok {
			// Consistency violation: Store maps to a Beads id absent
			// from the snapshot. Try re-link by title before giving up.
			return e.reconcileMissingBeadsMapping(ctx, project, issue, stored, snap, result)
		}
		return e.applyMappedHulyToBeads(ctx, project, issue, stored, beadsIssue, result, touched)
	}

	// Unmapped: run the full link cascade before ever creating.
	if candidate := e.findBeadsLinkCandidate(snap, issue); candidate != nil {
		result.Synced++
		return e.linkHulyToBeads(ctx, project, issue, candidate, snap)
	}

	return e.createBeadsFromHuly(ctx, project, issue, result, touched)
}

// findBeadsLinkCandidate runs the link cascade: (i) stored-id lookup
// (already excluded by the caller since stored.BeadsIssueID is empty
// here), (ii) footer substring, (iii) normalized-title equality, (iv)
// strict containment above the 10-char floor.
func (e *Engine) findBeadsLinkCandidate(snap *Snapshot, issue *huly.Issue) *beadsadapter.Issue {
	if c := snap.findBeadsByFooter(issue.Identifier); c != nil {
		return c
	}
	if c := snap.findBeadsByTitle(issue.Title, false); c != nil {
		return c
	}
	if c := snap.findBeadsByTitle(issue.Title, true); c != nil {
		return c
	}
	return nil
}

// linkHulyToBeads is record-only: no Beads mutation, just a Store write.
func (e *Engine) linkHulyToBeads(ctx context.Context, project *types.Project, issue *huly.Issue, beadsIssue *beadsadapter.Issue, snap *Snapshot) error {
	stored := snap.storedByIdentifier[issue.Identifier]
	row := &types.Issue{
		Identifier:        issue.Identifier,
		ProjectIdentifier: project.Identifier,
		HulyID:            issue.ID,
		Title:             issue.Title,
		Description:       issue.Description,
		Status:            statusFromHuly(issue.Status),
		Priority:          priorityFromHuly(issue.Priority),
		BeadsIssueID:      beadsIssue.ID,
		BeadsStatus:       beadsIssue.Status,
		HulyModifiedAt:    issue.ModifiedOn,
		BeadsModifiedAt:   beadsIssue.UpdatedAt,
		ParentHulyID:      issue.ParentID,
	}
	if stored != nil {
		row.VibeTaskID = stored.VibeTaskID
		row.ParentBeadsID = stored.ParentBeadsID
		row.SubIssueCount = stored.SubIssueCount
	}
	return e.store.UpsertIssue(ctx, row)
}

func (e *Engine) createBeadsFromHuly(ctx context.Context, project *types.Project, issue *huly.Issue, result *PhaseResult, touched map[string]bool) error {
	mapping := mappers.HulyToBeadsStatus(statusFromHuly(issue.Status))
	var labels []string
	if mapping.Label != "" {
		labels = []string{mapping.Label}
	}
	in := beadsadapter.CreateIssueInput{
		Title:       issue.Title,
		Description: mappers.RenderFooter(issue.Description, issue.Identifier, issue.ParentID),
		Priority:    int(mappers.PriorityToBeads(priorityFromHuly(issue.Priority))),
		Type:        "task",
		Labels:      labels,
	}
	created, err := e.beads(project).CreateIssue(ctx, in)
	if err != nil {
		return err
	}
	touched[created.ID] = true
	result.Synced++

	row := &types.Issue{
		Identifier:        issue.Identifier,
		ProjectIdentifier: project.Identifier,
		HulyID:            issue.ID,
		Title:             issue.Title,
		Description:       issue.Description,
		Status:            statusFromHuly(issue.Status),
		Priority:          priorityFromHuly(issue.Priority),
		BeadsIssueID:      created.ID,
		BeadsStatus:       string(mapping.Status),
		HulyModifiedAt:    issue.ModifiedOn,
		ParentHulyID:      issue.ParentID,
	}
	return e.store.UpsertIssue(ctx, row)
}

// applyMappedHulyToBeads handles an issue whose mapped Beads counterpart
// is present in the snapshot: compare
// (status,priority,title,parent); apply Huly->Beads only when conflict
// resolution says this side wins, then refresh last-seen watermarks.
func (e *Engine) applyMappedHulyToBeads(ctx context.Context, project *types.Project, issue *huly.Issue, stored *types.Issue, beadsIssue *beadsadapter.Issue, result *PhaseResult, touched map[string]bool) error {
	res := resolveConflict(stored.HulyModifiedAt, issue.ModifiedOn, stored.BeadsModifiedAt, beadsIssue.UpdatedAt)

	changed := false
	if res.ApplyHulyToBeads {
		mapping := mappers.HulyToBeadsStatus(statusFromHuly(issue.Status))
		if beadsIssue.Status != string(mapping.Status) {
			if err := e.beads(project).UpdateIssue(ctx, beadsIssue.ID, "status", string(mapping.Status)); err != nil {
				return err
			}
			changed = true
		}
		wantPriority := int(mappers.PriorityToBeads(priorityFromHuly(issue.Priority)))
		if beadsIssue.Priority != wantPriority {
			if err := e.beads(project).UpdateIssue(ctx, beadsIssue.ID, "priority", strconv.Itoa(wantPriority)); err != nil {
				return err
			}
			changed = true
		}
		if beadsIssue.Title != issue.Title {
			if err := e.beads(project).UpdateIssue(ctx, beadsIssue.ID, "title", issue.Title); err != nil {
				return err
			}
			changed = true
		}
		if changed {
			touched[beadsIssue.ID] = true
			result.Synced++
		} else {
			result.Skipped++
		}
	} else {
		result.Skipped++
	}

	parentBeadsID, err := e.reparentHulyToBeads(ctx, project, issue, stored)
	if err != nil {
		return err
	}

	row := *stored
	row.Title = issue.Title
	row.Description = issue.Description
	row.Status = statusFromHuly(issue.Status)
	row.Priority = priorityFromHuly(issue.Priority)
	row.BeadsStatus = beadsIssue.Status
	row.HulyModifiedAt = issue.ModifiedOn
	row.BeadsModifiedAt = beadsIssue.UpdatedAt
	row.ParentHulyID = issue.ParentID
	row.ParentBeadsID = parentBeadsID
	return e.store.UpsertIssue(ctx, &row)
}

// reparentHulyToBeads re-issues the parent-child dependency when the
// Huly-side parent differs from the stored parent:
// "both directions read the current parent; if it differs from the
// stored parent, re-issue the parent-child dependency on the opposite
// side (add new, remove old) and update parent_huly_id/parent_beads_id
// atomically in Store." Returns the Beads id now recorded as the row's
// parent so the caller's subsequent upsert carries it forward.
func (e *Engine) reparentHulyToBeads(ctx context.Context, project *types.Project, issue *huly.Issue, stored *types.Issue) (string, error) {
	if issue.ParentID == stored.ParentHulyID {
		return stored.ParentBeadsID, nil
	}
	var newParentBeadsID string
	if issue.ParentID != "" {
		if parentRow, err := e.store.GetIssue(ctx, issue.ParentID); err == nil && parentRow != nil {
			newParentBeadsID = parentRow.BeadsIssueID
		}
	}
	if stored.ParentBeadsID != "" {
		if err := e.beads(project).DepRemove(ctx, stored.BeadsIssueID, stored.ParentBeadsID); err != nil {
			return stored.ParentBeadsID, err
		}
	}
	if newParentBeadsID != "" {
		if err := e.beads(project).DepAdd(ctx, stored.BeadsIssueID, newParentBeadsID); err != nil {
			return stored.ParentBeadsID, err
		}
	}
	if err := e.store.UpdateParentChild(ctx, issue.Identifier, issue.ParentID, newParentBeadsID); err != nil {
		return stored.ParentBeadsID, err
	}
	return newParentBeadsID, nil
}

// reconcileMissingBeadsMapping handles a mapping whose Beads counterpart
// vanished from the snapshot: attempt a re-link by title in the same
// cycle, else record a reconciliation candidate for the periodic sweep.
func (e *Engine) reconcileMissingBeadsMapping(ctx context.Context, project *types.Project, issue *huly.Issue, stored *types.Issue, snap *Snapshot, result *PhaseResult) error {
	if candidate := snap.findBeadsByTitle(issue.Title, false); candidate != nil {
		result.Synced++
		return e.linkHulyToBeads(ctx, project, issue, candidate, snap)
	}

	cand := &types.ReconciliationCandidate{
		ID:                project.Identifier + ":" + issue.Identifier,
		ProjectIdentifier: project.Identifier,
		Identifier:        issue.Identifier,
		Reason:            "stored beads_issue_id " + stored.BeadsIssueID + " not present in snapshot",
	}
	if err := e.store.RecordReconciliationCandidate(ctx, cand); err != nil {
		return err
	}
	result.Skipped++
	return nil
}
