package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// EndpointChecker probes the application's HTTP health endpoint.
type EndpointChecker struct {
	url    string
	client *retryablehttp.Client
}

// NewEndpointChecker creates a checker for url.
func NewEndpointChecker(url string, client *retryablehttp.Client) *EndpointChecker {
	return &EndpointChecker{url: url, client: client}
}

func (c *EndpointChecker) Name() string {
	return "http-endpoint"
}

// Check treats any 2xx as healthy and any other response as degraded: the
// server is up but not ready. No response at all is unhealthy.
func (c *EndpointChecker) Check(ctx context.Context) *Result {
	start := time.Now()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Unhealthy(fmt.Sprintf("invalid health URL: %v", err)).WithDetail("url", c.url)
	}

	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Unhealthy(fmt.Sprintf("no response: %v", err)).
			WithDetail("url", c.url).
			WithLatency(latency)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	var r *Result
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		r = Healthy(fmt.Sprintf("responding (%s)", resp.Status))
	} else {
		r = Degraded(fmt.Sprintf("responded %s", resp.Status))
	}
	return r.WithDetail("url", c.url).
		WithDetail("status_code", resp.StatusCode).
		WithLatency(latency)
}
