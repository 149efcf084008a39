package utils

import (
	"strings"

	"golang.org/x/mod/semver"
)

const (
	RequiredClientVersion string = "v1.0.0"
)

// CheckClientVersion reports whether toCheck satisfies RequiredClientVersion.
// The leading "v" is optional.
func CheckClientVersion(toCheck string) bool {
	if !strings.HasPrefix(toCheck, "v") {
		toCheck = "v" + toCheck
	}
	if !semver.IsValid(toCheck) {
		return false
	}
	return semver.Compare(toCheck, RequiredClientVersion) >= 0
}
