package versions

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// Extension version directories carry an install suffix ("1.2.3_0") which is
// ignored. Non-semver strings fall back to lexicographic comparison.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(stripInstallSuffix(newVersion))
	oldSemver, errOld := semver.NewVersion(stripInstallSuffix(oldVersion))

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	if newSemver.Equal(oldSemver) {
		return newVersion > oldVersion
	}
	return newSemver.GreaterThan(oldSemver)
}

// stripInstallSuffix drops the "_N" suffix Chromium appends to version directories
func stripInstallSuffix(v string) string {
	if i := strings.LastIndexByte(v, '_'); i > 0 {
		return v[:i]
	}
	return v
}
