package phaseengine

import (
	"context"
	"log/slog"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/mappers"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// phase3bBeadsToHuly is the mirror of 3a, skipping any Beads issue 3a
// already wrote to or created this cycle (same no-flap rule as Phase 1
// -> Phase 2).
func (e *Engine) phase3bBeadsToHuly(ctx context.Context, log *slog.Logger, project *types.Project, snap *Snapshot, touchedBeads map[string]bool) PhaseResult {
	var result PhaseResult

	for i := range snap.BeadsIssues {
		issue := &snap.BeadsIssues[i]
		if touchedBeads[issue.ID] {
			result.Skipped++
			continue
		}
		if issue.Deleted {
			result.Skipped++
			continue
		}
		if err := e.syncOneBeadsIssueToHuly(ctx, project, snap, issue, &result); err != nil {
			if isNotFound(err) {
				if stored := snap.storedByBeadsID[issue.ID]; stored != nil {
					if markErr := e.store.MarkDeletedFromHuly(ctx, stored.Identifier); markErr == nil {
						result.Skipped++
						continue
					}
				}
			}
			result.addError(issue.ID, "phase3b", err)
			log.ErrorContext(ctx, "phase3b sync failed", slog.String("issue", issue.ID), slog.String("error", err.Error()))
		}
	}
	return result
}

func (e *Engine) syncOneBeadsIssueToHuly(ctx context.Context, project *types.Project, snap *Snapshot, issue *beadsadapter.Issue, result *PhaseResult) error {
	stored := snap.storedByBeadsID[issue.ID]
	if stored != nil && stored.DeletedFromHuly {
		result.Skipped++
		return nil // tombstoned; never recreated on the Huly side either
	}

	if stored != nil {
		hulyIssue := snap.findHulyByIdentifier(stored.Identifier)
		if hulyIssue == nil {
			// Not present in this cycle's Huly snapshot: skipped. No Huly
			// call is made for it here, so this path sets no tombstone.
			result.Skipped++
			return nil
		}
		return e.applyMappedBeadsToHuly(ctx, project, snap, issue, stored, hulyIssue, result)
	}

	if candidate := e.findHulyLinkCandidate(snap, issue); candidate != nil {
		result.Synced++
		return e.linkBeadsToHuly(ctx, project, issue, candidate)
	}
	return e.createHulyFromBeads(ctx, project, issue, result)
}

// findHulyLinkCandidate mirrors findBeadsLinkCandidate: footer reference
// first, then normalized-title equality, then the conditional substring
// tier when the Engine is configured to allow it.
func (e *Engine) findHulyLinkCandidate(snap *Snapshot, issue *beadsadapter.Issue) *huly.Issue {
	if id := mappers.ExtractHulyIdentifier(issue.Description); id != "" {
		if h := snap.findHulyByIdentifier(id); h != nil {
			return h
		}
	}
	if c := snap.findHulyByTitle(issue.Title, false); c != nil {
		return c
	}
	if e.opts.AllowSubstringIn3b {
		if c := snap.findHulyByTitle(issue.Title, true); c != nil {
			return c
		}
	}
	return nil
}

func (e *Engine) linkBeadsToHuly(ctx context.Context, project *types.Project, issue *beadsadapter.Issue, hulyIssue *huly.Issue) error {
	row := &types.Issue{
		Identifier:        hulyIssue.Identifier,
		ProjectIdentifier: project.Identifier,
		HulyID:            hulyIssue.ID,
		Title:             hulyIssue.Title,
		Description:       hulyIssue.Description,
		Status:            statusFromHuly(hulyIssue.Status),
		Priority:          priorityFromHuly(hulyIssue.Priority),
		BeadsIssueID:      issue.ID,
		BeadsStatus:       issue.Status,
		HulyModifiedAt:    hulyIssue.ModifiedOn,
		BeadsModifiedAt:   issue.UpdatedAt,
		ParentHulyID:      hulyIssue.ParentID,
	}
	return e.store.UpsertIssue(ctx, row)
}

func (e *Engine) createHulyFromBeads(ctx context.Context, project *types.Project, issue *beadsadapter.Issue, result *PhaseResult) error {
	in := huly.CreateIssueInput{
		ProjectIdentifier: project.Identifier,
		Title:             issue.Title,
		Description:       mappers.StripFooter(issue.Description),
		Status:            hulyStatusLabel(mappers.BeadsToHulyStatus(mappers.BeadsStatusValue(issue.Status), issue.Labels)),
		Priority:          int(mappers.PriorityFromBeads(mappers.BeadsPriority(issue.Priority))),
	}
	created, err := e.huly.CreateIssue(ctx, in)
	if err != nil {
		return err
	}
	result.Synced++

	row := &types.Issue{
		Identifier:        created.Identifier,
		ProjectIdentifier: project.Identifier,
		HulyID:            created.ID,
		Title:             created.Title,
		Description:       created.Description,
		Status:            statusFromHuly(created.Status),
		Priority:          priorityFromHuly(created.Priority),
		BeadsIssueID:      issue.ID,
		BeadsStatus:       issue.Status,
		HulyModifiedAt:    created.ModifiedOn,
		BeadsModifiedAt:   issue.UpdatedAt,
	}
	return e.store.UpsertIssue(ctx, row)
}

// applyMappedBeadsToHuly handles a Beads issue already linked to a Huly
// issue present in this cycle's snapshot: apply Beads->Huly only when
// conflict resolution says this side wins, then refresh watermarks.
func (e *Engine) applyMappedBeadsToHuly(ctx context.Context, project *types.Project, snap *Snapshot, issue *beadsadapter.Issue, stored *types.Issue, hulyIssue *huly.Issue, result *PhaseResult) error {
	res := resolveConflict(stored.HulyModifiedAt, hulyIssue.ModifiedOn, stored.BeadsModifiedAt, issue.UpdatedAt)

	finalStatus := statusFromHuly(hulyIssue.Status)
	finalPriority := priorityFromHuly(hulyIssue.Priority)
	finalTitle := hulyIssue.Title
	patch := map[string]interface{}{}

	if res.ApplyBeadsToHuly {
		wantStatus := mappers.BeadsToHulyStatus(mappers.BeadsStatusValue(issue.Status), issue.Labels)
		if finalStatus != wantStatus {
			patch["status"] = hulyStatusLabel(wantStatus)
			finalStatus = wantStatus
		}
		wantPriority := mappers.PriorityFromBeads(mappers.BeadsPriority(issue.Priority))
		if finalPriority != wantPriority {
			patch["priority"] = int(wantPriority)
			finalPriority = wantPriority
		}
		if finalTitle != issue.Title {
			patch["title"] = issue.Title
			finalTitle = issue.Title
		}
	}

	if len(patch) > 0 {
		if _, err := e.huly.PatchIssue(ctx, hulyIssue.ID, patch); err != nil {
			return err
		}
		result.Synced++
	} else {
		result.Skipped++
	}

	parentHulyID, parentBeadsID, err := e.reparentBeadsToHuly(ctx, project, snap, issue, stored, hulyIssue)
	if err != nil {
		return err
	}

	row := *stored
	row.Title = finalTitle
	row.Description = hulyIssue.Description
	row.Status = finalStatus
	row.Priority = finalPriority
	row.BeadsStatus = issue.Status
	row.HulyModifiedAt = hulyIssue.ModifiedOn
	row.BeadsModifiedAt = issue.UpdatedAt
	row.ParentHulyID = parentHulyID
	row.ParentBeadsID = parentBeadsID
	return e.store.UpsertIssue(ctx, &row)
}

// reparentBeadsToHuly mirrors reparentHulyToBeads: read the current Beads
// parent, and if it differs from the stored mapping, move the Huly issue
// and update Store atomically. Returns the parent pair
// now recorded on the row.
func (e *Engine) reparentBeadsToHuly(ctx context.Context, project *types.Project, snap *Snapshot, issue *beadsadapter.Issue, stored *types.Issue, hulyIssue *huly.Issue) (string, string, error) {
	currentBeadsParent, err := e.beads(project).CurrentParent(ctx, issue.ID)
	if err != nil {
		return stored.ParentHulyID, stored.ParentBeadsID, err
	}
	if currentBeadsParent == stored.ParentBeadsID {
		return stored.ParentHulyID, stored.ParentBeadsID, nil
	}

	var newParentIdentifier string
	if currentBeadsParent != "" {
		if parentRow, ok := snap.storedByBeadsID[currentBeadsParent]; ok {
			newParentIdentifier = parentRow.Identifier
		}
	}

	var parentArg *string
	if newParentIdentifier != "" {
		parentArg = &newParentIdentifier
	}
	if err := e.huly.MoveIssue(ctx, hulyIssue.ID, parentArg); err != nil {
		return stored.ParentHulyID, stored.ParentBeadsID, err
	}
	if err := e.store.UpdateParentChild(ctx, stored.Identifier, newParentIdentifier, currentBeadsParent); err != nil {
		return stored.ParentHulyID, stored.ParentBeadsID, err
	}
	return newParentIdentifier, currentBeadsParent, nil
}
