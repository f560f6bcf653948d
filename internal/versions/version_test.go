package versions

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
		check     func(t *testing.T, info VersionInfo)
	}{
		{
			name:      "release build",
			version:   "v1.2.3",
			commit:    "abcdef0123456789",
			buildDate: "2026-01-02T03:04:05Z",
			check: func(t *testing.T, info VersionInfo) {
				t.Helper()
				assert.Equal(t, "v1.2.3", info.Version)
				assert.Equal(t, "abcdef0123456789", info.Commit)
				assert.Equal(t, "2026-01-02 03:04:05 UTC", info.BuildDate)
			},
		},
		{
			name:      "dev build uses commit prefix",
			version:   "dev",
			commit:    "0123456789abcdef",
			buildDate: "not-a-date",
			check: func(t *testing.T, info VersionInfo) {
				t.Helper()
				assert.Equal(t, "build-01234567", info.Version)
				assert.Equal(t, "not-a-date", info.BuildDate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.True(t, strings.Contains(info.Platform, "/"))
			tt.check(t, info)
		})
	}
}
