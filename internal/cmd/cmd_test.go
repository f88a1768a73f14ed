package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/guardian/internal/guardian"
	"github.com/felixgeelhaar/guardian/internal/ux"
	"github.com/felixgeelhaar/guardian/internal/version"
)

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	content := "app:\n  name: n8n\npaths:\n  data_dir: " + dataDir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandContextDefaults(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.ParseFlags(nil))

	cctx, err := NewCommandContext(root)
	require.NoError(t, err)
	assert.Equal(t, "text", cctx.Format)
	assert.False(t, cctx.AssumeYes)
	assert.False(t, cctx.TUI)
	assert.Empty(t, cctx.MetricsAddr)
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, filepath.Join(dir, "from-file"))

	root := NewRootCommand()
	require.NoError(t, root.ParseFlags([]string{
		"--config", cfgPath,
		"--data-dir", filepath.Join(dir, "from-flag"),
		"--log-level", "debug",
		"--yes",
		"--format", "JSON",
	}))

	cctx, err := NewCommandContext(root)
	require.NoError(t, err)
	assert.Equal(t, "json", cctx.Format)

	cfg, err := cctx.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from-flag"), cfg.Paths.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Prompts.AssumeYes)
}

func TestLoadConfigMissingFile(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	cctx, err := NewCommandContext(root)
	require.NoError(t, err)
	_, err = cctx.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG-002")
}

func TestSetupCreatesDataDirAndSessionLog(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	cfgPath := writeConfig(t, dataDir)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(""))
	require.NoError(t, root.ParseFlags([]string{"--config", cfgPath, "--yes", "--no-color", "--metrics-addr", "127.0.0.1:0"}))

	env, err := setup(root)
	require.NoError(t, err)

	_, isAssumeYes := env.confirmer().(ux.AssumeYes)
	assert.True(t, isAssumeYes)
	_, isConfirm := env.approver(env.confirmer()).(guardian.ConfirmApprover)
	assert.True(t, isConfirm)
	assert.Contains(t, out.String(), "Metrics available at http://127.0.0.1:")

	env.Close()

	data, err := os.ReadFile(filepath.Join(dataDir, "guardian.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "command started")
	assert.Contains(t, string(data), "command finished")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "guardian "+version.Version+"\n", out)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestLogsCommandTailsSessionLog(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)
	lines := []string{"one", "two", "three", "four"}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "guardian.log"), []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	out, err := execute(t, "logs", "--config", cfgPath, "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "three\nfour\n", out)
}

func TestLogsCommandWithoutLogs(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)

	out, err := execute(t, "logs", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No session log yet")

	out, err = execute(t, "logs", "--config", cfgPath, "--security")
	require.NoError(t, err)
	assert.Contains(t, out, "No security audits recorded yet")
}

func TestLogsCommandSecurityLog(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)
	entry := "SECURITY AUDIT - 2026-01-02 10:00:00\nResult: NO VULNERABILITIES\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "security_audit.log"), []byte(entry), 0o600))

	out, err := execute(t, "logs", "--config", cfgPath, "--security")
	require.NoError(t, err)
	assert.Equal(t, entry, out)
}

func TestLogsCommandRejectsNonPositiveLines(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "guardian.log"), []byte("x\n"), 0o600))

	_, err := execute(t, "logs", "--config", cfgPath, "-n", "0")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestDoctorReportRenderText(t *testing.T) {
	var buf bytes.Buffer
	r := &doctorReport{OS: "linux", Arch: "amd64", CI: "github", Error: "[TOOL-002] npm is not available on this system"}
	require.NoError(t, r.RenderText(&buf))
	assert.Contains(t, buf.String(), "Platform: linux/amd64")
	assert.Contains(t, buf.String(), "CI: github")
	assert.Contains(t, buf.String(), "Prerequisites not satisfied: [TOOL-002]")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "[TOOL-001] node 18 or newer is required", firstLine("[TOOL-001] node 18 or newer is required\n\nSuggestions:\n  • x"))
	assert.Equal(t, "plain", firstLine("plain"))
}
