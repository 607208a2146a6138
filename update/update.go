// Package update keeps the installed binary current: a cached release
// check against GitHub and an atomic in-place binary swap.
package update

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	repo       = "murmurhq/murmur"
	binaryName = "murmur"
)

// Release is a published build that can replace the running one.
type Release struct {
	Version   string `json:"version"`
	BinaryURL string `json:"binary_url"`
	SumsURL   string `json:"sums_url,omitempty"`
}

func assetFor(goos, goarch string) string {
	return fmt.Sprintf("%s_%s_%s", binaryName, goos, goarch)
}

// parseVersion reads "v1.2.3" into its numeric parts. Pre-release and
// build suffixes do not participate in ordering.
func parseVersion(s string) ([3]int, bool) {
	var out [3]int
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	rest := s
	for i := 0; i < 3; i++ {
		part := rest
		if i < 2 {
			var found bool
			part, rest, found = strings.Cut(rest, ".")
			if !found {
				return out, false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// NewerThan reports whether the release outranks the installed version.
// A build without a parseable version never updates.
func (r Release) NewerThan(installed string) bool {
	have, ok := parseVersion(installed)
	if !ok {
		return false
	}
	next, ok := parseVersion(r.Version)
	if !ok {
		return false
	}
	for i := range next {
		if next[i] != have[i] {
			return next[i] > have[i]
		}
	}
	return false
}
