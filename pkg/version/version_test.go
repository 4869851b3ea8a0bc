package version

import (
	"regexp"
	"testing"
)

var semver = regexp.MustCompile(`^v\d+\.\d+\.\d+(-[0-9A-Za-z.]+)?$`)

// The version is reported by /api/version and the startup log; release
// tooling overrides it with -ldflags.
func TestVersion_Semver(t *testing.T) {
	if !semver.MatchString(Version) {
		t.Errorf("Version = %q, want vMAJOR.MINOR.PATCH", Version)
	}
}
