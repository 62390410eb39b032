package watchers

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const docsDebounce = 5 * time.Second

// engineMetadataFiles are files the engine itself writes into the
// documentation tree (e.g. export watermarks); the watcher must never
// react to its own writes.
var engineMetadataFiles = map[string]bool{
	".docsync-meta.json": true,
}

func isDocsCandidate(name string) bool {
	if engineMetadataFiles[name] {
		return false
	}
	lower := strings.ToLower(name)
	switch filepath.Ext(lower) {
	case ".md", ".html":
		return true
	}
	return strings.Contains(filepath.ToSlash(lower), "images/")
}

// DocsWatcher observes the configured documentation subdirectory of each
// tracked project, the same fsnotify-plus-debounce shape as BeadsWatcher
// but scoped to markdown/HTML content instead of the .beads tree. Only
// direct children of that directory are watched (no recursion), and the
// filter sees only the base name, so files under an images/ subdirectory
// are not picked up.
type DocsWatcher struct {
	projects ProjectLister
	subdir   string
	log      *slog.Logger

	watcher   *fsnotify.Watcher
	coalescer *coalescer

	watching map[string]string
}

// NewDocsWatcher builds a watcher rooted at <project path>/<subdir> for
// every tracked project.
func NewDocsWatcher(projects ProjectLister, subdir string, log *slog.Logger, onChange ChangeHandler) (*DocsWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DocsWatcher{
		projects:  projects,
		subdir:    subdir,
		log:       log,
		watcher:   fsw,
		coalescer: newCoalescer(docsDebounce, onChange),
		watching:  make(map[string]string),
	}, nil
}

// Run refreshes the watch list and blocks dispatching events until ctx is
// cancelled.
func (w *DocsWatcher) Run(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		w.log.ErrorContext(ctx, "docs watcher initial refresh failed", slog.String("error", err.Error()))
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
				w.log.ErrorContext(ctx, "docs watcher refresh failed", slog.String("error", err.Error()))
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
			w.log.ErrorContext(ctx, "docs watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *DocsWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !isDocsCandidate(filepath.Base(event.Name)) {
		return
	}

	dir := filepath.Dir(event.Name)
	var projectIdentifier, projectPath string
	for id, watchedDir := range w.watching {
		if strings.HasPrefix(dir, watchedDir) {
			projectIdentifier = id
			projectPath = filepath.Dir(watchedDir)
			break
		}
	}
	if projectIdentifier == "" {
		return
	}

	w.coalescer.notify(projectIdentifier, projectPath, event.Name)
}

func (w *DocsWatcher) refresh(ctx context.Context) error {
	if w.subdir == "" {
		return nil
	}
	projects, err := w.projects.GetAllProjects(ctx)
	if err != nil {
		return err
	}

	for _, p := range projects {
		if p.FilesystemPath == "" {
			continue
		}
		if _, ok := w.watching[p.Identifier]; ok {
			continue
		}
		dir := filepath.Join(p.FilesystemPath, w.subdir)
		if err := w.watcher.Add(dir); err != nil {
			w.log.WarnContext(ctx, "cannot watch project docs dir", slog.String("project", p.Identifier), slog.String("error", err.Error()))
			continue
		}
		w.watching[p.Identifier] = dir
	}
	return nil
}
