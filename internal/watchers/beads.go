package watchers

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

const beadsDebounce = 5 * time.Second

// ignoredBeadsSuffixes are database side-files and process artifacts that
// churn far more often than the issue data itself and never represent a
// meaningful change on their own.
var ignoredBeadsSuffixes = []string{
	".db-wal",
	".db-shm",
	".lock",
	".pid",
	".log",
}

func isIgnoredBeadsFile(name string) bool {
	for _, suffix := range ignoredBeadsSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ProjectLister supplies the set of projects to watch; satisfied by
// store.Store.GetAllProjects.
type ProjectLister interface {
	GetAllProjects(ctx context.Context) ([]*types.Project, error)
}

// BeadsWatcher watches every tracked project's .beads directory and
// coalesces rapid writes into a single ChangeHandler call per project.
type BeadsWatcher struct {
	projects ProjectLister
	log      *slog.Logger
	onChange ChangeHandler

	watcher   *fsnotify.Watcher
	coalescer *coalescer

	mu       sync.Mutex
	watching map[string]string // projectIdentifier -> .beads dir
}

// NewBeadsWatcher builds a watcher that invokes onChange after a 5s quiet
// period following the last observed write under a project's .beads tree.
func NewBeadsWatcher(projects ProjectLister, log *slog.Logger, onChange ChangeHandler) (*BeadsWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &BeadsWatcher{
		projects:  projects,
		log:       log,
		onChange:  onChange,
		watcher:   fsw,
		coalescer: newCoalescer(beadsDebounce, onChange),
		watching:  make(map[string]string),
	}, nil
}

// Run refreshes the watch list against the current project set and then
// blocks, dispatching events until ctx is cancelled.
func (w *BeadsWatcher) Run(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		w.log.ErrorContext(ctx, "beads watcher initial refresh failed", slog.String("error", err.Error()))
	}

	refreshTicker := time.NewTicker(time.Minute)
	defer refreshTicker.Stop()
	defer w.coalescer.stop()
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refreshTicker.C:
			if err := w.refresh(ctx); err != nil {
				w.log.ErrorContext(ctx, "beads watcher refresh failed", slog.String("error", err.Error()))
			}
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.ErrorContext(ctx, "beads watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *BeadsWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	base := filepath.Base(event.Name)
	if isIgnoredBeadsFile(base) {
		return
	}
	if !strings.HasSuffix(base, ".jsonl") && !strings.HasSuffix(base, ".db") && base != "metadata.json" {
		return
	}

	dir := filepath.Dir(event.Name)
	w.mu.Lock()
	var projectIdentifier, projectPath string
	for id, watchedDir := range w.watching {
		if watchedDir == dir {
			projectIdentifier = id
			projectPath = filepath.Dir(watchedDir)
			break
		}
	}
	w.mu.Unlock()
	if projectIdentifier == "" {
		return
	}

	w.coalescer.notify(projectIdentifier, projectPath, event.Name)
}

// refresh adds watches for any project not already watched. A deleted
// project's watch simply stops producing events and is left in place.
func (w *BeadsWatcher) refresh(ctx context.Context) error {
	projects, err := w.projects.GetAllProjects(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range projects {
		if p.FilesystemPath == "" {
			continue
		}
		if _, ok := w.watching[p.Identifier]; ok {
			continue
		}
		beadsDir := filepath.Join(p.FilesystemPath, ".beads")
		if err := w.watcher.Add(beadsDir); err != nil {
			w.log.WarnContext(ctx, "cannot watch project .beads dir", slog.String("project", p.Identifier), slog.String("error", err.Error()))
			continue
		}
		w.watching[p.Identifier] = beadsDir
	}
	return nil
}
