package security

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/resolve"
	"github.com/felixgeelhaar/guardian/internal/runner/runnertest"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

const auditCmd = "npm audit --audit-level moderate"

func newTestAuditor(t *testing.T, script *runnertest.Script, opts ...Option) (*Auditor, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	l := NewLog(filepath.Join(t.TempDir(), "security_audit.log"))
	base := []Option{
		WithReporter(ux.NewReporter(&out, nil, true)),
		WithClock(func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }),
	}
	return NewAuditor(script, session.New(), l, "npm", "n8n", "moderate", append(base, opts...)...), &out
}

func TestAuditNowClean(t *testing.T) {
	script := runnertest.New().On(auditCmd, runnertest.OK("audited 812 packages\nfound 0 vulnerabilities"))
	a, out := newTestAuditor(t, script)

	rep := a.AuditNow()

	assert.True(t, rep.Ran)
	assert.True(t, rep.Clean)
	assert.Equal(t, ProceedClean, rep.Recommendation)
	assert.Len(t, rep.Digest, 64)
	assert.Contains(t, out.String(), "No vulnerabilities found")

	logged, err := a.Log().ReadAll()
	require.NoError(t, err)
	assert.Contains(t, logged, "NO VULNERABILITIES")
}

func TestAuditNowCriticalBlocks(t *testing.T) {
	script := runnertest.New().On(auditCmd, runnertest.Exit(1, "2 critical, 1 moderate", ""))
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	a, out := newTestAuditor(t, script, WithMetrics(m))

	rep := a.AuditNow()

	assert.False(t, rep.Clean)
	assert.Equal(t, BlockUntilResolved, rep.Recommendation)
	assert.Equal(t, []Finding{{Critical, 2}, {Moderate, 1}}, rep.Findings)
	assert.Equal(t, 3, rep.Total())
	assert.Contains(t, out.String(), "Immediate action required")
	assert.Contains(t, out.String(), "critical=2 moderate=1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Audits.WithLabelValues(string(BlockUntilResolved))))
}

func TestAuditNowAmbiguousOutputIsCaution(t *testing.T) {
	script := runnertest.New().On(auditCmd, runnertest.Exit(1, "npm ERR! unable to reach the audit endpoint for this package", ""))
	a, out := newTestAuditor(t, script)

	rep := a.AuditNow()

	assert.True(t, rep.Ran)
	assert.False(t, rep.Clean)
	assert.Empty(t, rep.Findings)
	assert.Equal(t, ProceedWithCaution, rep.Recommendation)
	assert.Contains(t, out.String(), "could not be classified")
}

func TestAuditNowDegradedScan(t *testing.T) {
	tests := []struct {
		name   string
		script *runnertest.Script
	}{
		{"package manager missing", runnertest.New().On(auditCmd, runnertest.NotFound())},
		{"spawn failure", runnertest.New().On(auditCmd, runnertest.Unexpected(errors.New("fork failed")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, out := newTestAuditor(t, tt.script)

			rep := a.AuditNow()

			assert.False(t, rep.Ran)
			assert.Equal(t, ProceedWithCaution, rep.Recommendation)
			assert.NotEmpty(t, rep.Error)
			assert.Contains(t, out.String(), "Could not run the security audit")

			logged, err := a.Log().ReadAll()
			require.NoError(t, err)
			assert.Contains(t, logged, "AUDIT ERROR")
		})
	}
}

func TestAuditorUsesResolvedPackageManager(t *testing.T) {
	sess := session.New()
	sess.Record(&resolve.Executable{Name: "npm", Invocation: `"/opt/node/bin/npm"`, Method: resolve.WellKnownPath})
	script := runnertest.New().On(`"/opt/node/bin/npm" audit --audit-level high`, runnertest.OK("found 0 vulnerabilities"))

	a := NewAuditor(script, sess, nil, "npm", "n8n", "high")
	rep := a.AuditNow()

	assert.True(t, rep.Clean)
	assert.Equal(t, []string{`"/opt/node/bin/npm" audit --audit-level high`}, script.Calls())
}

func TestAuditNowLogFailureIsAWarning(t *testing.T) {
	dir := t.TempDir()
	script := runnertest.New().On(auditCmd, runnertest.OK("found 0 vulnerabilities"))
	var out bytes.Buffer
	// The log path is a directory, so opening it for append fails.
	a := NewAuditor(script, session.New(), NewLog(dir), "npm", "n8n", "moderate",
		WithReporter(ux.NewReporter(&out, nil, true)))

	rep := a.AuditNow()

	assert.Equal(t, ProceedClean, rep.Recommendation)
	assert.Contains(t, out.String(), "Could not write the security log")
}

func TestReportRenderText(t *testing.T) {
	rep := &Report{
		Command:        auditCmd,
		Ran:            true,
		Findings:       []Finding{{High, 1}},
		Excerpt:        "1 high severity vulnerability",
		Recommendation: UpdateRecommended,
	}
	var buf bytes.Buffer
	require.NoError(t, rep.RenderText(&buf))

	text := buf.String()
	assert.Contains(t, text, "VULNERABILITIES FOUND")
	assert.Contains(t, text, "high=1")
	assert.Contains(t, text, "update-recommended")
	assert.True(t, strings.HasSuffix(text, "1 high severity vulnerability\n"))
}
