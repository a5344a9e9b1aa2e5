package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, built string, info *debug.BuildInfo) {
	t.Helper()
	origV, origC, origB, origR := Version, GitCommit, BuildTime, readBuildInfo
	Version, GitCommit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = origV, origC, origB, origR
	})
}

func TestLdflagsWin(t *testing.T) {
	withBuild(t, "v1.2.3", "0123456789abcdef", "2024-01-15T10:00:00Z", nil)

	assert.Equal(t, "v1.2.3", GetVersion())
	assert.Equal(t, "v1.2.3 (0123456)", GetShortVersion())
	assert.Equal(t, "certsmith/v1.2.3", UserAgent())

	info := GetBuildInfo()
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), info.BuildTime.UTC())

	detailed := GetDetailedVersion()
	assert.Contains(t, detailed, "Version: v1.2.3")
	assert.Contains(t, detailed, "Commit: 0123456789abcdef")
	assert.Contains(t, detailed, "Built: 2024-01-15T10:00:00Z")
}

func TestFallsBackToBuildInfo(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fedcba9876543210"}},
	})

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "fedcba9876543210", GetGitCommit())
	assert.Equal(t, "dev-fedcba9", GetShortVersion())
	assert.True(t, GetBuildInfo().BuildTime.IsZero())
	assert.False(t, strings.Contains(GetDetailedVersion(), "Built:"))
}

func TestNoBuildInfo(t *testing.T) {
	withBuild(t, "", "", "garbage", nil)

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.Equal(t, "dev", GetShortVersion())
}
