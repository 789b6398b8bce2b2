// Package update asks the release feed whether a newer ailon exists.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the latest-release endpoint of the project.
const DefaultURL = "https://api.github.com/repos/gwakdaeyun7-hub/ailon/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	Current       string
	LatestVersion string
}

// Newer reports whether the release differs from the running version.
func (r Result) Newer() bool {
	return r.LatestVersion != "" && r.LatestVersion != r.Current
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

// Checker queries a GitHub-style releases endpoint.
type Checker struct {
	Client  *http.Client
	URL     string
	Timeout time.Duration
}

// Check fetches the latest release tag. A leading "v" is ignored on both
// sides.
func (c Checker) Check(ctx context.Context, currentVersion string) (Result, error) {
	res := Result{Current: strings.TrimPrefix(currentVersion, "v")}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.URL
	if url == "" {
		url = DefaultURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return res, fmt.Errorf("checking for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("checking for updates: unexpected status %d", resp.StatusCode)
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return res, fmt.Errorf("decoding release: %w", err)
	}
	res.LatestVersion = strings.TrimPrefix(release.TagName, "v")
	return res, nil
}
