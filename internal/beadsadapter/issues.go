package beadsadapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListIssuesWithFallback reads the snapshot source chain: the SQLite
// database when present, then the JSONL dump, and finally
// `bd list --json` when neither on-disk form is readable.
func (a *Adapter) ListIssuesWithFallback(ctx context.Context, status string) ([]Issue, error) {
	if rows, err := a.ListIssuesSQLite(ctx, status); err == nil {
		return rows, nil
	}
	if rows, err := a.ListIssues(status); err == nil {
		return rows, nil
	}
	args := []string{"list"}
	if status != "" {
		args = append(args, "--status="+status)
	}
	args = append(args, "--json")
	out, err := a.run(ctx, "listIssues", args)
	if err != nil {
		return nil, err
	}
	var rows []Issue
	if err := json.Unmarshal(out, &rows); err != nil {
		return nil, fmt.Errorf("parsing bd list output: %w", err)
	}
	return rows, nil
}

// GetIssue runs `bd show <id> --json`.
func (a *Adapter) GetIssue(ctx context.Context, id string) (*Issue, error) {
	out, err := a.run(ctx, "getIssue", []string{"show", quote(id), "--json"})
	if err != nil {
		return nil, err
	}
	var row Issue
	if err := json.Unmarshal(out, &row); err != nil {
		return nil, fmt.Errorf("parsing bd show output: %w", err)
	}
	return &row, nil
}

// CreateIssue runs `bd create <quoted-title> [--priority=N] [--type=TYPE]
// [--labels=a,b] --json`, sanitizing the title first.
func (a *Adapter) CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error) {
	title := sanitizeTitle(in.Title)
	args := []string{"create", quote(title)}
	if in.Priority != 0 {
		args = append(args, fmt.Sprintf("--priority=%d", in.Priority))
	}
	if in.Type != "" {
		args = append(args, "--type="+quote(in.Type))
	}
	if len(in.Labels) > 0 {
		args = append(args, "--labels="+quote(joinComma(in.Labels)))
	}
	if in.Description != "" {
		args = append(args, "--description="+quote(in.Description))
	}
	args = append(args, "--json")

	out, err := a.run(ctx, "createIssue", args)
	if err != nil {
		return nil, err
	}
	var row Issue
	if err := json.Unmarshal(out, &row); err != nil {
		return nil, fmt.Errorf("parsing bd create output: %w", err)
	}
	return &row, nil
}

// UpdateIssue applies a single field update from the closed vocabulary.
func (a *Adapter) UpdateIssue(ctx context.Context, id, field, value string) error {
	if !updatableFields[field] {
		return fmt.Errorf("beadsadapter: field %q is not in the updatable vocabulary", field)
	}
	if field == "title" {
		value = sanitizeTitle(value)
	}
	_, err := a.run(ctx, "updateIssue", []string{"update", quote(id), "--" + field + "=" + quote(value)})
	return err
}

func (a *Adapter) CloseIssue(ctx context.Context, id string) error {
	_, err := a.run(ctx, "closeIssue", []string{"close", quote(id)})
	return err
}

func (a *Adapter) ReopenIssue(ctx context.Context, id string) error {
	_, err := a.run(ctx, "reopenIssue", []string{"reopen", quote(id)})
	return err
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
