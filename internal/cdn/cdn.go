// Package cdn notifies the CDN about changed documentation paths after
// builds and deletions. The invalidation protocol itself lives behind the
// backend's HTTP endpoint; this package only carries batches of paths.
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Invalidator accepts a batch of changed paths and returns the paths that
// could not be invalidated.
type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) ([]string, error)
}

// Noop discards invalidations. Used when no CDN is configured.
type Noop struct{}

func (Noop) Invalidate(_ context.Context, _ []string) ([]string, error) { return nil, nil }

// HTTPInvalidator posts invalidation batches to the CDN backend's
// invalidation endpoint.
type HTTPInvalidator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInvalidator creates an invalidator against the given endpoint URL.
func NewHTTPInvalidator(endpoint string) *HTTPInvalidator {
	return &HTTPInvalidator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type invalidateRequest struct {
	Paths []string `json:"paths"`
}

type invalidateResponse struct {
	Failed []string `json:"failed"`
}

// Invalidate sends one batch. A non-2xx response is an error; per-path
// failures come back in the response body.
func (i *HTTPInvalidator) Invalidate(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(invalidateRequest{Paths: paths})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invalidation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invalidation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invalidation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalidation endpoint returned %s", resp.Status)
	}

	var out invalidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode invalidation response: %w", err)
	}
	return out.Failed, nil
}
