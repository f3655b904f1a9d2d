package advisory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsVersionRange returns true if the ref string is a SemVer range
// constraint (e.g. "< 1.2.3", ">= 1.0, < 2.0") rather than a tag,
// branch, or commit SHA.
func IsVersionRange(ref string) bool {
	if ref == "" {
		return false
	}
	return strings.ContainsAny(ref, "^~><!=,") || strings.Contains(ref, " ")
}

// ResolveRange selects a concrete tag from available that satisfies the
// given range constraint, preferring the highest matching version. Tags
// that do not parse as semver are ignored. The returned value is the
// tag's original spelling (so "v1.2.3" stays "v1.2.3").
func ResolveRange(constraint string, available []string) (string, error) {
	if len(available) == 0 {
		return "", fmt.Errorf("no tags available")
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("parsing version range %q: %w", constraint, err)
	}

	var versions []*semver.Version
	for _, tag := range available {
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no semver tags among %d available", len(available))
	}

	// Sort descending so the highest satisfying version wins.
	sort.Sort(sort.Reverse(semver.Collection(versions)))

	for _, v := range versions {
		if c.Check(v) {
			return v.Original(), nil
		}
	}
	return "", fmt.Errorf("no tag satisfies range %q", constraint)
}
