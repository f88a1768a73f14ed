package ux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/log"
)

func newTestReporter() (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	var term, logs bytes.Buffer
	logger := log.New(log.Config{Level: log.LevelDebug, Format: log.FormatText, Output: log.NewOutput(&logs)})
	return NewReporter(&term, logger, true), &term, &logs
}

func TestReporterMirrorsToLog(t *testing.T) {
	r, term, logs := newTestReporter()

	r.Info("checking runtime", "name", "node")
	r.Success("runtime verified")
	r.Warn("version unparseable")
	r.Error("launch failed")

	assert.Contains(t, term.String(), "• checking runtime")
	assert.Contains(t, term.String(), "✓ runtime verified")
	assert.Contains(t, term.String(), "! version unparseable")
	assert.Contains(t, term.String(), "✗ launch failed")

	assert.Contains(t, logs.String(), "level=INFO msg=\"checking runtime\" name=node")
	assert.Contains(t, logs.String(), "outcome=success")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestReporterNoColorHasNoEscapes(t *testing.T) {
	r, term, _ := newTestReporter()
	r.Header("PREREQUISITES")
	r.Success("ok")

	assert.NotContains(t, term.String(), "\x1b[")
	assert.Contains(t, term.String(), "PREREQUISITES")
}

func TestReporterFail(t *testing.T) {
	r, term, logs := newTestReporter()

	r.Fail(nil)
	assert.Empty(t, term.String())

	r.Fail(gerrors.NewRuntimeDeclinedError("node"))
	assert.Contains(t, term.String(), "TOOL-004")
	assert.Contains(t, logs.String(), "error_code=TOOL-004")

	r.Fail(errors.New("plain"))
	assert.Contains(t, logs.String(), "error=plain")
}

func TestReporterPlainIsNotLogged(t *testing.T) {
	r, term, logs := newTestReporter()
	r.Plain("exit=%d", 0)

	assert.Equal(t, "exit=0\n", term.String())
	assert.Empty(t, logs.String())
}
