// Package huly is the typed client for the Huly issue surface: a thin
// wrapper over a pooled, retrying, metrics-instrumented httpx.Client,
// with NOT_FOUND surfaced as (nil, nil) rather than an error.
package huly

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/oculairmedia/huly-vibe-sync/internal/httpx"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

const component = "huly"

// Client is the Huly RemoteClient.
type Client struct {
	http *httpx.Client
}

// NewClient builds a Client bound to baseURL using the shared transport.
func NewClient(baseURL, apiToken string, metrics *observability.Metrics) *Client {
	headers := map[string]string{}
	if apiToken != "" {
		headers["Authorization"] = "Bearer " + apiToken
	}
	return &Client{http: httpx.NewClient(component, baseURL, metrics, headers)}
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.http.Do(ctx, "GET", "/projects", "listProjects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIssues fetches one project's issues, optionally incremental
// (opts.ModifiedSince) and with the {issues, syncMeta, count} envelope
// when opts.IncludeSyncMeta is set.
func (c *Client) ListIssues(ctx context.Context, project string, opts ListIssuesOptions) (*ListIssuesResult, error) {
	path := "/projects/" + url.PathEscape(project) + "/issues" + buildListQuery(opts)
	var out ListIssuesResult
	if err := c.http.Do(ctx, "GET", path, "listIssues", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIssuesBulk fetches issues for several projects in one call, the
// bulk path used by the orchestrator's fan-out policy.
func (c *Client) ListIssuesBulk(ctx context.Context, projects []string, opts ListIssuesOptions) (*ListIssuesResult, error) {
	q := buildListQuery(opts)
	body := struct {
		Projects []string `json:"projects"`
	}{Projects: projects}
	var out ListIssuesResult
	if err := c.http.Do(ctx, "POST", "/issues/bulk-list"+q, "listIssuesBulk", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func buildListQuery(opts ListIssuesOptions) string {
	q := url.Values{}
	if opts.ModifiedSince != "" {
		q.Set("modifiedSince", opts.ModifiedSince)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.IncludeSyncMeta {
		q.Set("includeSyncMeta", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// GetIssue returns (nil, nil) on a 404; a deleted issue reads as absent,
// not as an error. Mutating calls (PatchIssue, MoveIssue, UpdateIssue) do
// NOT get this treatment: a 404 there propagates as KindNotFound so the
// caller can tombstone the mapping.
func (c *Client) GetIssue(ctx context.Context, id string) (*Issue, error) {
	var out Issue
	if err := c.http.Do(ctx, "GET", "/issues/"+url.PathEscape(id), "getIssue", nil, &out); err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetIssuesBulk(ctx context.Context, ids []string) ([]Issue, error) {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	var out []Issue
	if err := c.http.Do(ctx, "POST", "/issues/bulk-get", "getIssuesBulk", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error) {
	var out Issue
	if err := c.http.Do(ctx, "POST", "/issues", "createIssue", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssue sets a single field.
func (c *Client) UpdateIssue(ctx context.Context, id, field string, value interface{}) (*Issue, error) {
	body := map[string]interface{}{field: value}
	var out Issue
	if err := c.http.Do(ctx, "PATCH", "/issues/"+url.PathEscape(id), "updateIssue", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PatchIssue(ctx context.Context, id string, partial map[string]interface{}) (*Issue, error) {
	var out Issue
	if err := c.http.Do(ctx, "PATCH", "/issues/"+url.PathEscape(id), "patchIssue", partial, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	return c.http.Do(ctx, "DELETE", "/issues/"+url.PathEscape(id), "deleteIssue", nil, nil)
}

func (c *Client) DeleteIssueBulk(ctx context.Context, ids []string) error {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.http.Do(ctx, "POST", "/issues/bulk-delete", "deleteIssueBulk", body, nil)
}

func (c *Client) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	path := "/issues/search?q=" + url.QueryEscape(query)
	var out []Issue
	if err := c.http.Do(ctx, "GET", path, "searchIssues", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MoveIssue reparents id under parentID, or clears its parent when
// parentID is nil.
func (c *Client) MoveIssue(ctx context.Context, id string, parentID *string) error {
	body := struct {
		ParentID *string `json:"parentId"`
	}{ParentID: parentID}
	if err := c.http.Do(ctx, "POST", "/issues/"+url.PathEscape(id)+"/move", "moveIssue", body, nil); err != nil {
		return fmt.Errorf("moveIssue %s: %w", id, err)
	}
	return nil
}
