package phaseengine

import (
	"context"
	"log/slog"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// phase4Docs is the documentation-platform collaborator call. With no DocSyncer
// configured, e.docs is a NoopDocSyncer and this is a no-op every cycle.
func (e *Engine) phase4Docs(ctx context.Context, log *slog.Logger, project *types.Project) PhaseResult {
	var result PhaseResult

	lastExport, err := e.store.GetHulySyncCursor(ctx, project.Identifier)
	if err != nil {
		result.addError(project.Identifier, "phase4", err)
		log.ErrorContext(ctx, "phase4 cursor lookup failed", slog.String("error", err.Error()))
		return result
	}

	if err := e.docs.ExportChanges(ctx, project.Identifier, lastExport, nil); err != nil {
		result.addError(project.Identifier, "phase4", err)
		log.ErrorContext(ctx, "phase4 doc export failed", slog.String("error", err.Error()))
		return result
	}

	result.Synced++
	return result
}
