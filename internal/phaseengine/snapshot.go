package phaseengine

import (
	"context"
	"fmt"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/mappers"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
)

// Snapshot is the per-project view captured at phase entry: Huly issues
// (since cursor or full), Vibe tasks, Beads issues, and the stored Issue
// rows, plus lookup indices rebuilt from them.
type Snapshot struct {
	HulyIssues  []huly.Issue
	VibeTasks   []vibe.Task
	BeadsIssues []beadsadapter.Issue
	Stored      []*types.Issue
	SyncMeta    *huly.SyncMeta

	storedByIdentifier map[string]*types.Issue
	storedByBeadsID    map[string]*types.Issue
	storedByVibeID     map[string]*types.Issue
	beadsByID          map[string]*beadsadapter.Issue
	vibeByID           map[string]*vibe.Task
	hulyByIdentifier   map[string]*huly.Issue
}

// captureSnapshot fetches the Vibe and Beads surfaces and the stored rows
// for one project; the Huly issues are the caller's, used as given.
func (e *Engine) captureSnapshot(ctx context.Context, project *types.Project, hulyIssues []huly.Issue, syncMeta *huly.SyncMeta) (*Snapshot, error) {
	vibeTasks, err := e.vibe.ListTasks(ctx, project.VibeID)
	if err != nil {
		return nil, fmt.Errorf("listing vibe tasks: %w", err)
	}

	beadsIssues, err := e.beads(project).ListIssuesWithFallback(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing beads issues: %w", err)
	}

	stored, err := e.store.GetProjectIssues(ctx, project.Identifier)
	if err != nil {
		return nil, fmt.Errorf("loading stored issues: %w", err)
	}

	snap := &Snapshot{
		HulyIssues:  hulyIssues,
		VibeTasks:   vibeTasks,
		BeadsIssues: beadsIssues,
		Stored:      stored,
		SyncMeta:    syncMeta,
	}
	snap.buildIndices()
	return snap, nil
}

func (s *Snapshot) buildIndices() {
	s.storedByIdentifier = make(map[string]*types.Issue, len(s.Stored))
	s.storedByBeadsID = make(map[string]*types.Issue, len(s.Stored))
	s.storedByVibeID = make(map[string]*types.Issue, len(s.Stored))
	for _, row := range s.Stored {
		s.storedByIdentifier[row.Identifier] = row
		if row.BeadsIssueID != "" {
			s.storedByBeadsID[row.BeadsIssueID] = row
		}
		if row.VibeTaskID != "" {
			s.storedByVibeID[row.VibeTaskID] = row
		}
	}

	s.beadsByID = make(map[string]*beadsadapter.Issue, len(s.BeadsIssues))
	for i := range s.BeadsIssues {
		s.beadsByID[s.BeadsIssues[i].ID] = &s.BeadsIssues[i]
	}

	s.vibeByID = make(map[string]*vibe.Task, len(s.VibeTasks))
	for i := range s.VibeTasks {
		s.vibeByID[s.VibeTasks[i].ID] = &s.VibeTasks[i]
	}

	s.hulyByIdentifier = make(map[string]*huly.Issue, len(s.HulyIssues))
	for i := range s.HulyIssues {
		s.hulyByIdentifier[s.HulyIssues[i].Identifier] = &s.HulyIssues[i]
	}
}

// findVibeTaskByFooter scans Vibe tasks for a "Huly Issue: <identifier>"
// footer reference.
func (s *Snapshot) findVibeTaskByFooter(identifier string) *vibe.Task {
	for i := range s.VibeTasks {
		if mappers.ExtractHulyIdentifier(s.VibeTasks[i].Description) == identifier {
			return &s.VibeTasks[i]
		}
	}
	return nil
}

// findBeadsByFooter scans Beads issues for a "Huly Issue: <identifier>"
// footer reference.
func (s *Snapshot) findBeadsByFooter(identifier string) *beadsadapter.Issue {
	for i := range s.BeadsIssues {
		if mappers.ExtractHulyIdentifier(s.BeadsIssues[i].Description) == identifier {
			return &s.BeadsIssues[i]
		}
	}
	return nil
}

// findBeadsByTitle runs the title-match tiers (normalized equality, and
// strict containment above the 10-char floor when allowSubstring).
func (s *Snapshot) findBeadsByTitle(title string, allowSubstring bool) *beadsadapter.Issue {
	for i := range s.BeadsIssues {
		if mappers.TitlesMatch(title, s.BeadsIssues[i].Title, allowSubstring) {
			return &s.BeadsIssues[i]
		}
	}
	return nil
}

// findHulyByIdentifier returns the snapshot's Huly issue for an
// identifier (e.g. one extracted from a footer by Phase 2 or Phase 3b
// linking); Huly issues are already keyed by identifier so this is a
// direct map lookup, not a scan.
func (s *Snapshot) findHulyByIdentifier(identifier string) *huly.Issue {
	return s.hulyByIdentifier[identifier]
}

func (s *Snapshot) findHulyByTitle(title string, allowSubstring bool) *huly.Issue {
	for i := range s.HulyIssues {
		if mappers.TitlesMatch(title, s.HulyIssues[i].Title, allowSubstring) {
			return &s.HulyIssues[i]
		}
	}
	return nil
}
