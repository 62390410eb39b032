package watchers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 10*time.Millisecond)

	// Quiet period elapsed; no extra fires.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncerCancelPreventsFire(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	d.Trigger()
	d.Cancel()

	time.Sleep(120 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestDebouncerRetriggersAfterFire(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	d.Trigger()
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	d.Trigger()
	require.Eventually(t, func() bool { return fired.Load() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestCoalescerBatchesPathsPerProject(t *testing.T) {
	var mu sync.Mutex
	type call struct {
		project string
		path    string
		changed []string
	}
	var calls []call

	c := newCoalescer(40*time.Millisecond, func(projectIdentifier, projectPath string, changedPaths []string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, call{projectIdentifier, projectPath, changedPaths})
	})
	defer c.stop()

	c.notify("ACME", "/srv/acme", "/srv/acme/.beads/issues.jsonl")
	c.notify("ACME", "/srv/acme", "/srv/acme/.beads/metadata.json")
	c.notify("OTHER", "/srv/other", "/srv/other/.beads/issues.jsonl")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	byProject := map[string]call{}
	for _, c := range calls {
		byProject[c.project] = c
	}
	require.Contains(t, byProject, "ACME")
	require.Contains(t, byProject, "OTHER")
	assert.ElementsMatch(t, []string{
		"/srv/acme/.beads/issues.jsonl",
		"/srv/acme/.beads/metadata.json",
	}, byProject["ACME"].changed)
	assert.Equal(t, "/srv/acme", byProject["ACME"].path)
	assert.Len(t, byProject["OTHER"].changed, 1)
}

func TestIgnoredBeadsFiles(t *testing.T) {
	assert.True(t, isIgnoredBeadsFile("beads.db-wal"))
	assert.True(t, isIgnoredBeadsFile("beads.db-shm"))
	assert.True(t, isIgnoredBeadsFile("daemon.pid"))
	assert.True(t, isIgnoredBeadsFile("bd.lock"))
	assert.False(t, isIgnoredBeadsFile("issues.jsonl"))
	assert.False(t, isIgnoredBeadsFile("metadata.json"))
}

func TestDocsCandidateFilter(t *testing.T) {
	assert.True(t, isDocsCandidate("README.md"))
	assert.True(t, isDocsCandidate("index.html"))
	assert.False(t, isDocsCandidate(".docsync-meta.json"))
	assert.False(t, isDocsCandidate("notes.txt"))
}
