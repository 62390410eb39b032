// Package beadsadapter wraps the bd CLI and its Git-tracked on-disk
// state: issue CRUD, dependency ops, JSONL/SQLite snapshot reads, and
// the commit/push tail of a sync cycle.
package beadsadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

// Adapter operates the bd CLI and Git working tree for one project.
type Adapter struct {
	Dir           string // project's filesystem path, the bd working directory
	OperationDelay time.Duration
	metrics       *observability.Metrics
	dryRun        bool
}

func New(dir string, operationDelay time.Duration, metrics *observability.Metrics, dryRun bool) *Adapter {
	return &Adapter{Dir: dir, OperationDelay: operationDelay, metrics: metrics, dryRun: dryRun}
}

// run invokes `bd <args>` through a shell so quoted flag-value arguments
// compose the way the bd CLI expects, always appending --no-daemon.
// DRY_RUN logs the command instead of executing it.
func (a *Adapter) run(ctx context.Context, operation string, args []string) ([]byte, error) {
	stop := a.metrics.Timer(ctx, "beads", operation)
	defer stop()

	fullArgs := append(append([]string{}, args...), "--no-daemon")
	cmdline := "bd " + strings.Join(fullArgs, " ")

	if a.dryRun {
		a.metrics.RecordLatency(ctx, "beads", operation, 0)
		return nil, dryRunSkip{cmdline: cmdline}
	}

	if a.OperationDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.OperationDelay):
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Dir = a.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		kind := types.KindValidation
		if ctx.Err() != nil {
			kind = types.KindTransientNetwork
		}
		a.metrics.RecordError(ctx, "beads", operation, kind.String())
		return stdout.Bytes(), types.NewClassifiedError(kind, "beads", operation, 0,
			fmt.Errorf("%s: %w: %s", cmdline, err, strings.TrimSpace(stderr.String())))
	}
	return stdout.Bytes(), nil
}

// dryRunSkip is returned in place of an error by run() when dryRun is set,
// letting callers distinguish "did not actually run" from a real failure
// without introducing a sentinel error value that ordinary failures could
// accidentally match.
type dryRunSkip struct{ cmdline string }

func (d dryRunSkip) Error() string { return "dry run, skipped: " + d.cmdline }

// IsDryRunSkip reports whether err is the sentinel returned for a
// suppressed dry-run command.
func IsDryRunSkip(err error) bool {
	_, ok := err.(dryRunSkip)
	return ok
}
