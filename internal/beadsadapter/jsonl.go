package beadsadapter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// issuesJSONLPath is .beads/issues.jsonl relative to the adapter's Dir.
func (a *Adapter) issuesJSONLPath() string {
	return filepath.Join(a.Dir, ".beads", "issues.jsonl")
}

// readIssuesJSONL parses one Issue per line, skipping blank lines and
// tolerating a trailing partial line left by a concurrent writer.
func readIssuesJSONL(path string) ([]Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Issue
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row Issue
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue // tolerate a torn trailing line
		}
		out = append(out, row)
	}
	return out, scanner.Err()
}

// ListIssues returns issues filtered by status (empty = all), reading
// issues.jsonl directly; callers that want the CLI fallback use
// ListIssuesWithFallback.
func (a *Adapter) ListIssues(status string) ([]Issue, error) {
	rows, err := readIssuesJSONL(a.issuesJSONLPath())
	if err == nil {
		return filterByStatus(rows, status), nil
	}
	return nil, fmt.Errorf("reading issues.jsonl: %w (fall back to ListIssuesWithFallback)", err)
}

func filterByStatus(rows []Issue, status string) []Issue {
	if status == "" {
		return rows
	}
	var out []Issue
	for _, r := range rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
