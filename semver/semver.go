// Package semver provides the version and version-range types used by manifests,
// package feeds and the resolver.
//
// It is a thin wrapper around github.com/Masterminds/semver/v3. A Range written as a
// bare version ("1.2.0") pins that exact version; operator forms (">=1.0 <2.0",
// "^1.2", "~1.4", "1.x") behave as in Masterminds.
package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version. The zero value means "no version".
type Version struct {
	v *mm.Version
}

// Range is a version constraint. A nil *Range means "any version".
type Range struct {
	raw    string
	c      *mm.Constraints
	pinned *mm.Version
}

// ParseVersion parses a version string such as "1.2.0" or "2.0.0-beta1".
func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion is ParseVersion that panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseRange parses a version range.
func ParseRange(raw string) (*Range, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("semver: parse range %q: empty range", raw)
	}
	c, err := mm.NewConstraint(trimmed)
	if err != nil {
		return nil, fmt.Errorf("semver: parse range %q: %w", raw, err)
	}
	r := &Range{raw: trimmed, c: c}
	if v, err := mm.StrictNewVersion(strings.TrimPrefix(trimmed, "=")); err == nil {
		r.pinned = v
	}
	return r, nil
}

// MustParseRange is ParseRange that panics on error.
func MustParseRange(raw string) *Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Exactly returns a range pinned to v. A zero v yields nil (any version).
func Exactly(v Version) *Range {
	if v.IsZero() {
		return nil
	}
	return MustParseRange("=" + v.String())
}

// IsZero reports whether v holds no version.
func (v Version) IsZero() bool {
	return v.v == nil
}

// String returns the original version text, or "" for the zero Version.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Prerelease returns the prerelease part of v.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// Equal reports whether a and b denote the same version.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the zero Version.
func (v *Version) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = Version{}
		return nil
	}
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String returns the range text. A nil range prints as "*".
func (r *Range) String() string {
	if r == nil {
		return "*"
	}
	return r.raw
}

// Pinned returns the exact version the range pins, if it pins one.
func (r *Range) Pinned() (Version, bool) {
	if r == nil || r.pinned == nil {
		return Version{}, false
	}
	return Version{v: r.pinned}, true
}

// Allows reports whether v satisfies the range. A nil range allows every version.
func (r *Range) Allows(v Version) bool {
	if v.v == nil {
		return false
	}
	if r == nil {
		return true
	}
	return r.c.Check(v.v)
}

// Equal reports whether two ranges have the same text. Nil ranges are equal to each other.
func (r *Range) Equal(other *Range) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.raw == other.raw
}

// Compare compares a and b, returning -1, 0 or 1. The zero Version sorts first.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Best returns the highest version in candidates allowed by r.
//
// With a nil range, stable versions are preferred over prereleases.
func Best(r *Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !r.Allows(candidate) {
			continue
		}
		if r == nil && found && best.Prerelease() == "" && candidate.Prerelease() != "" {
			continue
		}
		if r == nil && found && best.Prerelease() != "" && candidate.Prerelease() == "" {
			best = candidate
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
