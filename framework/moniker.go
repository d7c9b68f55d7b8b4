// Package framework parses target framework monikers and answers compatibility
// questions between them.
//
// Monikers come in a short folder form ("net45", "aspnetcore50",
// "portable-net45+win8") and a long form (".NETFramework,Version=v4.5"). Parsing never
// fails: text that names no known framework yields Unsupported.
//
// Which frameworks may consume which is not hardcoded. It is described by a Table,
// loaded from YAML, with a default table embedded in the package.
package framework

import (
	"fmt"
	"strconv"
	"strings"
)

// Special identifiers.
const (
	AnyIdentifier         = "Any"
	UnsupportedIdentifier = "Unsupported"
	PortableIdentifier    = ".NETPortable"
)

var (
	// Any matches every target framework. Packages use it for content that has no
	// framework-specific folder.
	Any = Moniker{Identifier: AnyIdentifier}

	// Unsupported is returned for text that names no known framework.
	Unsupported = Moniker{Identifier: UnsupportedIdentifier}
)

// Version is a framework version number such as 4.5.1.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Build, other.Build},
		{v.Revision, other.Revision},
	} {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}

// String returns the dotted form, trimming trailing zero build/revision parts.
func (v Version) String() string {
	switch {
	case v.Revision > 0:
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
	case v.Build > 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	default:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
}

// compact returns the digits-only folder form: 4.5 -> "45", 4.5.1 -> "451".
func (v Version) compact() string {
	s := strconv.Itoa(v.Major) + strconv.Itoa(v.Minor)
	if v.Build > 0 || v.Revision > 0 {
		s += strconv.Itoa(v.Build)
	}
	if v.Revision > 0 {
		s += strconv.Itoa(v.Revision)
	}
	return s
}

// Moniker identifies a target framework generation. It is comparable and usable as a
// map key.
type Moniker struct {
	Identifier string
	Version    Version
	Profile    string
}

// IsAny reports whether m is the Any framework.
func (m Moniker) IsAny() bool {
	return m.Identifier == AnyIdentifier
}

// IsUnsupported reports whether m is Unsupported or empty.
func (m Moniker) IsUnsupported() bool {
	return m.Identifier == "" || m.Identifier == UnsupportedIdentifier
}

// IsZero reports whether m is the zero Moniker.
func (m Moniker) IsZero() bool {
	return m == Moniker{}
}

// Equal compares identity, version and profile.
func (m Moniker) Equal(other Moniker) bool {
	return strings.EqualFold(m.Identifier, other.Identifier) &&
		m.Version.Compare(other.Version) == 0 &&
		strings.EqualFold(m.Profile, other.Profile)
}

// ShortName returns the folder form, e.g. "net45" or "portable-net45+win8", using
// the family names of the default table.
func (m Moniker) ShortName() string {
	return Default().ShortName(m)
}

// String returns the long form, e.g. ".NETFramework,Version=v4.5".
func (m Moniker) String() string {
	if m.IsAny() || m.IsUnsupported() {
		if m.Identifier == "" {
			return UnsupportedIdentifier
		}
		return m.Identifier
	}
	s := m.Identifier + ",Version=v" + m.Version.String()
	if m.Profile != "" {
		s += ",Profile=" + m.Profile
	}
	return s
}

// MarshalText implements encoding.TextMarshaler using the short form.
func (m Moniker) MarshalText() ([]byte, error) {
	return []byte(m.ShortName()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the default table.
func (m *Moniker) UnmarshalText(text []byte) error {
	*m = Parse(string(text))
	return nil
}

// parseVersion accepts dotted ("4.5.1") and compact ("451") forms.
func parseVersion(s string) (Version, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return Version{}, false
	}

	var parts []int
	if strings.Contains(s, ".") {
		for _, p := range strings.Split(s, ".") {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return Version{}, false
			}
			parts = append(parts, n)
		}
	} else {
		for _, r := range s {
			if r < '0' || r > '9' {
				return Version{}, false
			}
			parts = append(parts, int(r-'0'))
		}
	}

	if len(parts) == 0 || len(parts) > 4 {
		return Version{}, false
	}
	for len(parts) < 4 {
		parts = append(parts, 0)
	}
	return Version{Major: parts[0], Minor: parts[1], Build: parts[2], Revision: parts[3]}, true
}
