//go:build e2e && !windows

package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeTools are shell stand-ins for node, npm and n8n.
var fakeTools = map[string]string{
	"node": `#!/bin/sh
echo v20.11.0
`,
	"npm": `#!/bin/sh
case "$1" in
  --version) echo 10.2.4 ;;
  list) echo "/usr/lib"; echo "` + "`" + `-- n8n@1.64.0" ;;
  view) echo 1.64.0 ;;
  audit) echo "found 0 vulnerabilities" ;;
  *) echo "unexpected npm $*" >&2; exit 1 ;;
esac
`,
	"n8n": `#!/bin/sh
case "$1" in
  --version) echo 1.64.0 ;;
  start) exec sleep 30 ;;
  *) exit 1 ;;
esac
`,
}

func buildGuardian(t *testing.T) string {
	t.Helper()
	projectRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}

	bin := filepath.Join(t.TempDir(), "guardian")
	buildCmd := exec.Command("go", "build", "-o", bin, "./cmd/guardian")
	buildCmd.Dir = projectRoot
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build guardian: %v\n%s", err, output)
	}
	return bin
}

func writeFakeTools(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, script := range fakeTools {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("Failed to write fake %s: %v", name, err)
		}
	}
	return dir
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	content := `app:
  url: http://127.0.0.1:5678
paths:
  data_dir: ` + dataDir + `
supervisor:
  first_grace: 100ms
  second_grace: 100ms
  poll_interval: 200ms
  stop_timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestRunLaunchAndStop(t *testing.T) {
	bin := buildGuardian(t)
	tools := writeFakeTools(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	cfgPath := writeConfig(t, dataDir)

	cmd := exec.Command(bin, "run", "--config", cfgPath, "--yes", "--no-color")
	cmd.Env = append(os.Environ(), "PATH="+tools+":/usr/bin:/bin")
	cmd.Stdin = strings.NewReader("stop\n")

	done := make(chan struct{})
	var output []byte
	var err error
	go func() {
		output, err = cmd.CombinedOutput()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("guardian did not exit after stop")
	}

	out := string(output)
	if err != nil {
		t.Fatalf("guardian run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"node found: v20.11.0", "No vulnerabilities found", "is running (PID", "Session finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	audit, err := os.ReadFile(filepath.Join(dataDir, "security_audit.log"))
	if err != nil {
		t.Fatalf("security log not written: %v", err)
	}
	if !strings.Contains(string(audit), "NO VULNERABILITIES") {
		t.Errorf("security log should record a clean audit:\n%s", audit)
	}
}

func TestDoctorJSON(t *testing.T) {
	bin := buildGuardian(t)
	tools := writeFakeTools(t)
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "data"))

	cmd := exec.Command(bin, "doctor", "--config", cfgPath, "--yes", "--format", "json")
	cmd.Env = append(os.Environ(), "PATH="+tools+":/usr/bin:/bin")
	var stdout strings.Builder
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		t.Fatalf("guardian doctor failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"healthy": true`) {
		t.Errorf("doctor should report healthy:\n%s", stdout.String())
	}
}

func TestMissingRuntimeExitCode(t *testing.T) {
	bin := buildGuardian(t)
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "data"))

	cmd := exec.Command(bin, "doctor", "--config", cfgPath)
	cmd.Env = append(os.Environ(), "PATH=/nonexistent")
	cmd.Stdin = strings.NewReader("n\n")
	err := cmd.Run()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected a non-zero exit, got %v", err)
	}
	if exitErr.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.ExitCode())
	}
}
