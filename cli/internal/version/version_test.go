package version

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBuildVars(t *testing.T, version, date, commit string) {
	t.Helper()
	prevVersion, prevDate, prevCommit := Version, BuildDate, GitCommit
	Version, BuildDate, GitCommit = version, date, commit
	t.Cleanup(func() { Version, BuildDate, GitCommit = prevVersion, prevDate, prevCommit })
}

func TestGet(t *testing.T) {
	setBuildVars(t, "1.2.3", "2026-01-02", "abc123")

	info := Get()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)

	assert.Contains(t, info.String(), "rwconn 1.2.3")
	assert.Contains(t, info.FullString(), "Git Commit: abc123")
}

func TestFromBuildInfo(t *testing.T) {
	setBuildVars(t, "", "", "")

	info := fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Path: "github.com/satishbabariya/rwconn", Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildDate)
	assert.Equal(t, "0123456789abcdef0123", info.GitCommit)
	assert.True(t, info.Modified)
	assert.Contains(t, info.FullString(), "Git Commit: 0123456789ab-dirty")
}

func TestFromBuildInfo_LdflagsWin(t *testing.T) {
	setBuildVars(t, "1.0.0", "", "feedface")

	info := fromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
	})
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "feedface", info.GitCommit)
	assert.Equal(t, unknown, info.BuildDate)
}

func TestFromBuildInfo_Defaults(t *testing.T) {
	setBuildVars(t, "", "", "")

	info := fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, unknown, info.GitCommit)

	info = fromBuildInfo(nil)
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, unknown, info.BuildDate)
}

func TestInfo_WriteJSON(t *testing.T) {
	info := Info{Version: "1.2.3", BuildDate: "today", GitCommit: "abc", GoVersion: "go1.24.1", Platform: "linux/amd64"}

	var buf bytes.Buffer
	require.NoError(t, info.WriteJSON(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1.2.3", got["version"])
	assert.Equal(t, "abc", got["git_commit"])
	assert.Equal(t, "linux/amd64", got["platform"])
	assert.NotContains(t, got, "modified")
}
