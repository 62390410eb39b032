package beadsadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// commitMessageLayout renders the "chore(beads): sync changes at
// YYYY-MM-DD HH:MM:SS" message template.
const commitMessageLayout = "2006-01-02 15:04:05"

// stagedPaths are the files Phase 3's Git tail commits. Only
// sync-related files are staged, so unrelated staged changes are never
// swept into the sync commit.
var stagedPaths = []string{
	".beads/issues.jsonl",
	".beads/interactions.jsonl",
	".beads/metadata.json",
	".gitattributes",
}

// SyncAndCommit runs `bd sync` to stage the working tree's JSONL export,
// then commits the tracked Beads files with a timestamped message, and
// optionally pushes. Commit recovery
//: a "nothing to commit" error on a genuinely dirty tree stages
// the known Beads paths explicitly and retries once; a pre-commit-hook
// failure retries once with hooks bypassed. push is a no-op (not an
// error) when the Adapter is in dry-run mode.
func (a *Adapter) SyncAndCommit(ctx context.Context, push bool) error {
	if _, err := a.run(ctx, "sync", []string{"sync", "-m", quote("bd sync"), "--no-push"}); err != nil && !IsDryRunSkip(err) {
		return fmt.Errorf("beadsadapter: bd sync: %w", err)
	}

	message := fmt.Sprintf("chore(beads): sync changes at %s", time.Now().Format(commitMessageLayout))
	if err := a.commitBeadsFiles(ctx, message); err != nil {
		return err
	}

	if push && !a.dryRun {
		if err := a.gitPush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// commitBeadsFiles stages and commits stagedPaths, applying the two
// recovery strategies: explicit re-stage, then hook bypass.
func (a *Adapter) commitBeadsFiles(ctx context.Context, message string) error {
	if a.dryRun {
		return nil
	}

	err := a.gitCommit(ctx, message, false)
	if err == nil {
		return nil
	}
	if isNothingToCommit(err) {
		dirty, dirtyErr := a.gitHasBeadsChanges(ctx)
		if dirtyErr == nil && dirty {
			if stageErr := a.gitAddStaged(ctx); stageErr == nil {
				if retryErr := a.gitCommit(ctx, message, false); retryErr == nil {
					return nil
				}
			}
		}
		return nil // nothing genuinely changed; not an error
	}
	if isPreCommitHookFailure(err) {
		return a.gitCommit(ctx, message, true)
	}
	return err
}

func (a *Adapter) gitAddStaged(ctx context.Context) error {
	args := append([]string{"add", "--"}, stagedPaths...)
	return a.runGit(ctx, args)
}

// gitCommit runs `git commit -m <message> -- <stagedPaths>`, optionally
// with `--no-verify` to bypass pre-commit hooks.
func (a *Adapter) gitCommit(ctx context.Context, message string, bypassHooks bool) error {
	if err := a.gitAddStaged(ctx); err != nil {
		return err
	}
	args := []string{"commit", "-m", message}
	if bypassHooks {
		args = append(args, "--no-verify")
	}
	args = append(args, "--")
	args = append(args, stagedPaths...)
	return a.runGit(ctx, args)
}

func (a *Adapter) gitPush(ctx context.Context) error {
	return a.runGit(ctx, []string{"push"})
}

// gitHasBeadsChanges reports whether .beads/ carries uncommitted changes,
// used to distinguish a genuine "nothing to commit" from a stale index
// that needs re-staging.
func (a *Adapter) gitHasBeadsChanges(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", ".beads")
	cmd.Dir = a.Dir
	out, err := cmd.Output()
	if err != nil {
		return false, err
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

func (a *Adapter) runGit(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func isNothingToCommit(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "nothing to commit") || strings.Contains(s, "nothing added to commit")
}

func isPreCommitHookFailure(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "pre-commit hook") || strings.Contains(s, "hook failed")
}

// InstallMergeDriver installs the Beads JSONL merge driver used by
// .gitattributes' "merge=beads". Git only accepts %O (base), %A
// (current), %B (other); %L/%R is a common misconfiguration.
func (a *Adapter) InstallMergeDriver(ctx context.Context) error {
	if a.dryRun {
		return nil
	}
	if err := a.runGit(ctx, []string{"config", "merge.beads.driver", "bd merge %A %O %A %B"}); err != nil {
		return fmt.Errorf("beadsadapter: installing merge driver: %w", err)
	}
	_, err := a.run(ctx, "hooksInstall", []string{"hooks", "install"})
	if err != nil && !IsDryRunSkip(err) {
		return fmt.Errorf("beadsadapter: bd hooks install: %w", err)
	}
	return nil
}

// CheckMergeDriverConfig reports whether an existing merge.beads.driver
// config uses the invalid %L/%R placeholders instead of %O/%A/%B, so a
// caller (e.g. Init) can warn before the misconfiguration causes a merge
// failure.
func (a *Adapter) CheckMergeDriverConfig(ctx context.Context) (misconfigured bool, current string) {
	cmd := exec.CommandContext(ctx, "git", "config", "merge.beads.driver")
	cmd.Dir = a.Dir
	out, err := cmd.Output()
	if err != nil {
		return false, ""
	}
	current = strings.TrimSpace(string(out))
	return strings.Contains(current, "%L") || strings.Contains(current, "%R"), current
}
