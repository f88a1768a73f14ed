package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	Version = "1.2.0"
	Commit = "abc123def456"
	Date = "2026-01-01T12:00:00Z"

	info := GetInfo()

	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, "abc123def456", info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "1.2.0",
		Commit:    "abc123def456",
		Date:      "2026-01-01T12:00:00Z",
		GoVersion: "go1.24.6",
		Platform:  "linux/amd64",
	}

	s := info.String()
	for _, want := range []string{"guardian 1.2.0", "(abc123de)", "2026-01-01T12:00:00Z", "go1.24.6", "linux/amd64"} {
		assert.Contains(t, s, want)
	}
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc", Info{Commit: "abc"}.ShortCommit())
	assert.Equal(t, "12345678", Info{Commit: "1234567890"}.ShortCommit())
}

func TestUserAgent(t *testing.T) {
	info := Info{Version: "1.2.0", Platform: "darwin/arm64"}
	assert.Equal(t, "guardian/1.2.0 (darwin/arm64)", info.UserAgent())
}
