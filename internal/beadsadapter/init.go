package beadsadapter

import (
	"context"
	"os"
	"path/filepath"
)

// beadsGitignore is written once at Init time: database side-files,
// lock/pid/log files, the local version marker, and merge artifacts
// never land in Git.
const beadsGitignore = `*.db
*.db-wal
*.db-shm
*.lock
*.pid
*.log
.local_version
*.orig
*.merge-*
`

// gitattributesEntry marks the two JSONL files as using the beads custom
// merge driver.
const gitattributesEntry = "" +
	".beads/issues.jsonl merge=beads\n" +
	".beads/interactions.jsonl merge=beads\n"

// Init idempotently creates the `.beads/` layout if it does not already
// exist: issues.jsonl, interactions.jsonl, metadata.json, config.json,
// .gitignore, plus a repo-root .gitattributes entry. Calling Init on an
// already-initialized project is a no-op for every file that already
// exists.
func (a *Adapter) Init(ctx context.Context) error {
	if a.dryRun {
		return nil
	}

	beadsDir := filepath.Join(a.Dir, ".beads")
	if err := os.MkdirAll(beadsDir, 0o755); err != nil {
		return err
	}

	for _, f := range []string{"issues.jsonl", "interactions.jsonl"} {
		if err := touchIfAbsent(filepath.Join(beadsDir, f)); err != nil {
			return err
		}
	}
	if err := writeIfAbsent(filepath.Join(beadsDir, "metadata.json"), []byte("{}\n")); err != nil {
		return err
	}
	if err := writeIfAbsent(filepath.Join(beadsDir, "config.json"), []byte("{}\n")); err != nil {
		return err
	}
	if err := writeIfAbsent(filepath.Join(beadsDir, ".gitignore"), []byte(beadsGitignore)); err != nil {
		return err
	}
	if err := appendIfMissing(filepath.Join(a.Dir, ".gitattributes"), gitattributesEntry); err != nil {
		return err
	}
	return nil
}

func touchIfAbsent(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func writeIfAbsent(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, 0o644)
}

func appendIfMissing(path string, entry string) error {
	existing, err := os.ReadFile(path)
	if err == nil {
		for _, line := range splitLines(string(existing)) {
			if line == ".beads/issues.jsonl merge=beads" {
				return nil
			}
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
