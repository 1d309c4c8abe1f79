// Package version holds the SDK version and the API compatibility check.
package version

import (
	"fmt"

	"github.com/blang/semver"
)

// Version is the SDK release. main overrides it through SetVersion at build time.
var Version = "0.1.0"

// APIVersion is the HaiBlock API version this SDK was written against.
const APIVersion = "1.0.0"

// UserAgent returns the User-Agent value sent with every request
func UserAgent() string {
	return "haiblock-go/" + Version
}

// Parse reads a version string, tolerating a leading "v" and missing
// minor or patch components.
func Parse(s string) (semver.Version, error) {
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

// CheckCompatible reports an error when the server's API version has a
// different major version than APIVersion.
func CheckCompatible(serverVersion string) error {
	server, err := Parse(serverVersion)
	if err != nil {
		return err
	}
	supported := semver.MustParse(APIVersion)
	if server.Major != supported.Major {
		return fmt.Errorf("server API version %s is not compatible with client API version %s", server, supported)
	}
	return nil
}

// IsNewer reports whether candidate is a newer release than current.
// Unparseable versions such as "dev" are never newer and always older.
func IsNewer(candidate, current string) bool {
	c, err := Parse(candidate)
	if err != nil {
		return false
	}
	cur, err := Parse(current)
	if err != nil {
		return true
	}
	return c.GT(cur)
}
