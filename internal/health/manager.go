package health

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/guardian/internal/metrics"
)

// NamedResult pairs a result with the checker that produced it.
type NamedResult struct {
	Name   string
	Result *Result
}

// Manager runs checks in parallel, each under its own timeout, and returns
// results in registration order.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewManager creates a manager with a 5-second per-check timeout.
func NewManager() *Manager {
	return &Manager{timeout: 5 * time.Second}
}

// WithTimeout sets the per-check timeout.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// WithMetrics counts check outcomes.
func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = mt
	return m
}

// AddChecker registers a checker.
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Check runs every checker.
func (m *Manager) Check(ctx context.Context) []NamedResult {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	mt := m.metrics
	m.mu.RUnlock()

	results := make([]NamedResult, len(checkers))
	var wg sync.WaitGroup

	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}

			mt.RecordHealthCheck(c.Name(), result.Status.String())
			results[i] = NamedResult{Name: c.Name(), Result: result}
		}(i, checker)
	}

	wg.Wait()
	return results
}

// OverallStatus is unhealthy if any result is, else degraded if any is,
// else healthy. No results count as healthy.
func OverallStatus(results []NamedResult) Status {
	degraded := false
	for _, r := range results {
		switch r.Result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			degraded = true
		}
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// Count returns the number of registered checkers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checkers)
}
