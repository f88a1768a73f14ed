// Package health answers "is the application actually serving?" for the
// console status command. Each Checker looks at one signal:
//   - the supervised process liveness
//   - the application's HTTP health endpoint
//
// Example usage:
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewProcessChecker(sup))
//	manager.AddChecker(health.NewEndpointChecker(cfg.HealthURL(), client))
//
//	for _, r := range manager.Check(ctx) {
//	    fmt.Println(r.Name, r.Result.Status)
//	}
package health

import (
	"context"
	"time"
)

// Checker is one health signal.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "process" or "http-endpoint".
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the health check status.
type Status string

const (
	StatusHealthy Status = "healthy"

	// StatusDegraded means the signal is present but not yet conclusive,
	// e.g. the process is still starting or the endpoint answered non-2xx.
	StatusDegraded Status = "degraded"

	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a result with an empty detail map.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns the result for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
