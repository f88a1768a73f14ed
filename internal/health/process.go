package health

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/guardian/internal/supervisor"
)

// SnapshotSource is implemented by *supervisor.Supervisor.
type SnapshotSource interface {
	Snapshot() supervisor.Snapshot
}

// ProcessChecker reports the supervised process liveness.
type ProcessChecker struct {
	source SnapshotSource
}

// NewProcessChecker creates a checker over source.
func NewProcessChecker(source SnapshotSource) *ProcessChecker {
	return &ProcessChecker{source: source}
}

func (c *ProcessChecker) Name() string {
	return "process"
}

func (c *ProcessChecker) Check(_ context.Context) *Result {
	snap := c.source.Snapshot()

	var r *Result
	switch snap.Liveness {
	case supervisor.StableRunning:
		r = Healthy(fmt.Sprintf("running (PID %d)", snap.PID)).
			WithDetail("uptime", snap.Uptime.Round(time.Second).String())
	case supervisor.Launching, supervisor.Starting:
		r = Degraded("starting")
	case supervisor.ExitedUnexpectedly:
		r = Unhealthy(fmt.Sprintf("exited unexpectedly (exit code %d)", snap.ExitCode))
	case supervisor.StoppedByOperator:
		r = Unhealthy("stopped")
	default:
		r = Unhealthy("not started")
	}
	if snap.PID > 0 {
		r.WithDetail("pid", snap.PID)
	}
	return r.WithDetail("liveness", snap.Liveness.String())
}
