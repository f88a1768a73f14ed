package upgrade

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// Registry reads the latest published version from an npm-compatible
// registry. It is the fallback when "<pm> view" cannot run.
type Registry struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewRegistry creates a Registry client.
func NewRegistry(baseURL string, client *retryablehttp.Client) *Registry {
	return &Registry{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type latestManifest struct {
	Version string `json:"version"`
}

// Latest fetches <base>/<package>/latest and returns its version field.
func (r *Registry) Latest(ctx context.Context, pkg string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/latest", r.baseURL, url.PathEscape(pkg))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry returned %s", resp.Status)
	}

	var manifest latestManifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&manifest); err != nil {
		return "", fmt.Errorf("decode registry manifest: %w", err)
	}
	if manifest.Version == "" {
		return "", fmt.Errorf("registry manifest has no version")
	}
	return manifest.Version, nil
}
