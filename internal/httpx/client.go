// Package httpx provides the pooled HTTP transport shared by the Huly and
// Vibe RemoteClients: maxSockets=50 with keep-alive, a 60s default
// deadline, automatic retry with exponential backoff for retryable errors,
// and per-call latency recording to the metrics collaborator.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
)

const (
	defaultMaxSockets   = 50
	defaultDeadline     = 60 * time.Second
	retryInitialBackoff = 1 * time.Second
	retryMaxBackoff     = 30 * time.Second
	retryMaxAttempts    = 3
)

// sharedTransport is the process-global connection pool. NewClient
// reuses it across every Huly/Vibe client instance rather than
// constructing a fresh Transport per client.
var sharedTransport = &http.Transport{
	MaxIdleConns:        defaultMaxSockets,
	MaxIdleConnsPerHost: defaultMaxSockets,
	MaxConnsPerHost:     defaultMaxSockets,
	IdleConnTimeout:     90 * time.Second,
}

// Client is a thin, metrics-instrumented, retrying JSON HTTP client.
// Component identifies the caller ("huly", "vibe") for metrics and error
// classification.
type Client struct {
	Component string
	BaseURL   string
	http      *http.Client
	metrics   *observability.Metrics
	headers   map[string]string
}

// NewClient builds a Client bound to baseURL, using the process-shared
// transport and a 60s per-call deadline.
func NewClient(component, baseURL string, metrics *observability.Metrics, headers map[string]string) *Client {
	return &Client{
		Component: component,
		BaseURL:   baseURL,
		http:      &http.Client{Transport: sharedTransport, Timeout: defaultDeadline},
		metrics:   metrics,
		headers:   headers,
	}
}

// Do issues one HTTP call, retrying retryable classified errors with
// exponential backoff and recording latency/error metrics for every attempt.
//
// body, if non-nil, is JSON-marshaled as the request payload. out, if
// non-nil, receives the JSON-decoded response body. A 404 surfaces as a
// KindNotFound classified error, never retried; getters that promise
// null-on-404 translate it with types.IsNotFound.
func (c *Client) Do(ctx context.Context, method, path, operation string, body, out interface{}) error {
	var lastErr error

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialBackoff
	policy.Multiplier = 2
	policy.MaxInterval = retryMaxBackoff
	retryable := backoff.WithMaxRetries(policy, retryMaxAttempts)

	op := func() error {
		err := c.doOnce(ctx, method, path, operation, body, out)
		lastErr = err
		if err == nil {
			return nil
		}
		if types.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, backoff.WithContext(retryable, ctx)); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Err
		}
		return lastErr
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path, operation string, body, out interface{}) error {
	stop := c.metrics.Timer(ctx, c.Component, operation)
	defer stop()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return types.NewClassifiedError(types.KindValidation, c.Component, operation, 0, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return types.NewClassifiedError(types.KindFatalConfig, c.Component, operation, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := types.KindTransientNetwork
		c.metrics.RecordError(ctx, c.Component, operation, kind.String())
		return types.NewClassifiedError(kind, c.Component, operation, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		kind := types.ClassifyHTTPStatus(resp.StatusCode)
		c.metrics.RecordError(ctx, c.Component, operation, kind.String())
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.NewClassifiedError(kind, c.Component, operation, resp.StatusCode,
			fmt.Errorf("unexpected status: %s", payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewClassifiedError(types.KindValidation, c.Component, operation, resp.StatusCode, err)
	}
	return nil
}
