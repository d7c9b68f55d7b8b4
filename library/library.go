// Package library describes resolved libraries: what a provider returns for one
// dependency under one target framework.
package library

import (
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// Type says which provider produced a description.
type Type int

const (
	Unresolved Type = iota
	Project
	Package
)

func (t Type) String() string {
	switch t {
	case Project:
		return "Project"
	case Package:
		return "Package"
	default:
		return "Unresolved"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Project":
		*t = Project
	case "Package":
		*t = Package
	default:
		*t = Unresolved
	}
	return nil
}

// Identity names a library at a version.
type Identity struct {
	Name    string
	Version semver.Version
}

// String formats the identity as name@version, or just name when unversioned.
func (id Identity) String() string {
	if id.Version.IsZero() {
		return id.Name
	}
	return id.Name + "@" + id.Version.String()
}

// Assembly is a compiled artifact contributed by a library.
type Assembly struct {
	Name    string
	Path    string
	Library Identity
}

// Description is one resolved library. Descriptions are shared between the cache and
// graphs and must not be modified after a provider returns them.
type Description struct {
	Identity     Identity
	Framework    framework.Moniker
	Type         Type
	Dependencies []manifest.Dependency
	Assemblies   []Assembly
	// Path is where the library's content lives: a project directory or an unpacked
	// package. Empty for unresolved libraries.
	Path string
}

// Resolved reports whether a real provider served the library.
func (d *Description) Resolved() bool {
	return d != nil && d.Type != Unresolved
}
