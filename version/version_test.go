package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{CommitHash: "0123456789abcdef", BuildTime: "2024-05-01", Version: "dev"}
	assert.Equal(t, "tpu dev (commit 0123456789abcdef, built 2024-05-01)", info.String())

	info.Version = "v1.2.0"
	assert.Equal(t, "tpu v1.2.0 (commit 0123456789abcdef, built 2024-05-01)", info.String())
	assert.Equal(t, "0123456", info.Short())
	assert.Equal(t, "tpu/v1.2.0 (0123456)", info.UserAgent())
}

func TestShortKeepsShortHashes(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestStamp(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "abcdef0123456789"},
		{Key: "vcs.time", Value: "2026-10-01T08:00:00Z"},
	}

	info := Info{CommitHash: "dev", BuildTime: "unknown"}
	info.stamp(settings)
	assert.Equal(t, "abcdef0123456789", info.CommitHash)
	assert.Equal(t, "2026-10-01T08:00:00Z", info.BuildTime)

	linked := Info{CommitHash: "1111111", BuildTime: "2026-09-30"}
	linked.stamp(settings)
	assert.Equal(t, "1111111", linked.CommitHash, "ldflags win")
	assert.Equal(t, "2026-09-30", linked.BuildTime)
}

func TestGet(t *testing.T) {
	info := Get()
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
	assert.Equal(t, Version, info.Version)
}
