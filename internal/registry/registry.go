// Package registry consumes the upstream package index's change feed. The
// feed is non-destructive: peeking at changes never commits to having
// consumed them, so the watcher decides when its resume point advances.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ChangeKind classifies one observed index change.
type ChangeKind string

const (
	// ReleaseAdded is a new or updated release that should be built.
	ReleaseAdded ChangeKind = "added"
	// ReleaseYanked marks a release withdrawn upstream.
	ReleaseYanked ChangeKind = "yanked"
	// ReleaseUnyanked reverses a yank.
	ReleaseUnyanked ChangeKind = "unyanked"
)

// Change is one release-level difference between two index states.
type Change struct {
	Name    string     `json:"name"`
	Version string     `json:"version"`
	Kind    ChangeKind `json:"kind"`
}

// DiffSource yields the changes between a resume reference and the current
// index head. A nil since means "from the beginning of history".
type DiffSource interface {
	// Peek returns the changes after since plus the head reference they lead
	// to, without consuming anything.
	Peek(ctx context.Context, since *string) ([]Change, string, error)
}

// Client is a DiffSource over the index service's HTTP change feed.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a change-feed client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type changesResponse struct {
	Changes []Change `json:"changes"`
	Head    string   `json:"head"`
}

// Peek fetches the change feed. Network and decode failures are transient;
// the caller retries on its own cadence.
func (c *Client) Peek(ctx context.Context, since *string) ([]Change, string, error) {
	endpoint := c.baseURL + "/changes"
	if since != nil {
		endpoint += "?since=" + url.QueryEscape(*since)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build change feed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("change feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("change feed returned %s", resp.Status)
	}

	var out changesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("failed to decode change feed: %w", err)
	}
	return out.Changes, out.Head, nil
}

type releasesResponse struct {
	// Versions keyed by crate name.
	Crates map[string][]string `json:"crates"`
}

// AllReleases returns every published (crate, version) pair as version sets
// keyed by crate name. Used by the consistency checker; the watcher never
// needs the full listing.
func (c *Client) AllReleases(ctx context.Context) (map[string]map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/releases", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release listing request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("release listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release listing returned %s", resp.Status)
	}

	var out releasesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode release listing: %w", err)
	}

	releases := make(map[string]map[string]bool, len(out.Crates))
	for name, versions := range out.Crates {
		set := make(map[string]bool, len(versions))
		for _, v := range versions {
			set[v] = true
		}
		releases[name] = set
	}
	return releases, nil
}
