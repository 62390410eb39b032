package watchers

import (
	"sync"
	"time"
)

// ChangeHandler is the contract both watchers fire into: the
// project identifier, its filesystem root, and the set of paths that
// changed during the debounce window.
type ChangeHandler func(projectIdentifier, projectPath string, changedPaths []string)

// coalescer accumulates changed paths per project and fires onChange once
// per project after the quiet period elapses, so a burst of fsnotify
// events for the same project collapses into a single downstream call
// instead of one per file write.
type coalescer struct {
	mu         sync.Mutex
	window     time.Duration
	debouncers map[string]*Debouncer
	pending    map[string]map[string]struct{}
	projectDir map[string]string
	onChange   ChangeHandler
}

func newCoalescer(window time.Duration, onChange ChangeHandler) *coalescer {
	return &coalescer{
		window:     window,
		debouncers: make(map[string]*Debouncer),
		pending:    make(map[string]map[string]struct{}),
		projectDir: make(map[string]string),
		onChange:   onChange,
	}
}

// notify records a changed path for a project and (re)arms its debounce
// timer. Call under no external lock; the coalescer is self-synchronized.
func (c *coalescer) notify(projectIdentifier, projectPath, changedPath string) {
	c.mu.Lock()
	paths, ok := c.pending[projectIdentifier]
	if !ok {
		paths = make(map[string]struct{})
		c.pending[projectIdentifier] = paths
	}
	paths[changedPath] = struct{}{}
	c.projectDir[projectIdentifier] = projectPath

	d, ok := c.debouncers[projectIdentifier]
	if !ok {
		d = NewDebouncer(c.window, func() { c.fire(projectIdentifier) })
		c.debouncers[projectIdentifier] = d
	}
	c.mu.Unlock()

	d.Trigger()
}

func (c *coalescer) fire(projectIdentifier string) {
	c.mu.Lock()
	paths := c.pending[projectIdentifier]
	projectPath := c.projectDir[projectIdentifier]
	delete(c.pending, projectIdentifier)
	c.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	changed := make([]string, 0, len(paths))
	for p := range paths {
		changed = append(changed, p)
	}
	c.onChange(projectIdentifier, projectPath, changed)
}

// stop cancels every project's pending debounce timer, waiting for any
// in-flight fire to finish.
func (c *coalescer) stop() {
	c.mu.Lock()
	debouncers := make([]*Debouncer, 0, len(c.debouncers))
	for _, d := range c.debouncers {
		debouncers = append(debouncers, d)
	}
	c.mu.Unlock()

	for _, d := range debouncers {
		d.CancelAndWait()
	}
}
