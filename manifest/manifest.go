// Package manifest reads project.json manifests into typed Project values.
//
// Parsing is lenient about scalars: a missing or mistyped field falls back to its
// documented default instead of failing. Only structural problems in the dependency
// lists (an empty or duplicated library name) reject a manifest, reported as
// *InvalidManifestError.
package manifest

import (
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// FileName is the canonical manifest file name.
const FileName = "project.json"

// DefaultVersion is used when a manifest declares no usable version.
var DefaultVersion = semver.MustParseVersion("1.0.0")

// Dependency is one declared library requirement.
type Dependency struct {
	Name string
	// Version is the accepted range. Nil means any version.
	Version *semver.Range
}

// String formats the dependency as name@range.
func (d Dependency) String() string {
	return d.Name + "@" + d.Version.String()
}

// Platform is the processor architecture a project compiles for.
type Platform int

const (
	AnyCPU Platform = iota
	X86
	X64
	ARM
	Itanium
	AnyCPU32BitPreferred
)

var platformNames = [...]string{
	AnyCPU:               "AnyCPU",
	X86:                  "x86",
	X64:                  "x64",
	ARM:                  "ARM",
	Itanium:              "Itanium",
	AnyCPU32BitPreferred: "AnyCPU32BitPreferred",
}

func (p Platform) String() string {
	if p < 0 || int(p) >= len(platformNames) {
		return platformNames[AnyCPU]
	}
	return platformNames[p]
}

// ParsePlatform matches a platform name case-insensitively.
func ParsePlatform(s string) (Platform, bool) {
	for i, name := range platformNames {
		if strings.EqualFold(s, name) {
			return Platform(i), true
		}
	}
	return AnyCPU, false
}

// ReportWarning controls how the compiler reports warnings.
type ReportWarning int

const (
	ReportDefault ReportWarning = iota
	ReportError
)

func (r ReportWarning) String() string {
	if r == ReportError {
		return "Error"
	}
	return "Default"
}

// CompilationOptions are the compiler switches a manifest may set.
type CompilationOptions struct {
	AllowUnsafe      bool
	Platform         Platform
	WarningsAsErrors bool
}

// WarningReport maps WarningsAsErrors to a report mode.
func (o CompilationOptions) WarningReport() ReportWarning {
	if o.WarningsAsErrors {
		return ReportError
	}
	return ReportDefault
}

// FrameworkSection holds the dependencies a manifest declares for one framework.
type FrameworkSection struct {
	// Key is the section name as written in the manifest.
	Key          string
	Framework    framework.Moniker
	Dependencies []Dependency
}

// Project is one parsed manifest. Values are not modified after Parse returns;
// re-reading a manifest produces a new Project.
type Project struct {
	Name            string
	Version         semver.Version
	Description     string
	Authors         []string
	TargetFramework framework.Moniker

	// Dependencies are shared by every target framework, in manifest order.
	Dependencies       []Dependency
	Frameworks         []FrameworkSection
	CompilationOptions CompilationOptions
	Commands           map[string]string

	// Exclude holds glob patterns, relative to the project directory, removed from
	// source enumeration.
	Exclude []string

	ManifestPath string
}

// Dir returns the directory containing the manifest.
func (p *Project) Dir() string {
	return dirOf(p.ManifestPath)
}

// TargetFrameworks returns the frameworks the project builds for: the declared
// framework sections, or TargetFramework when there are none.
func (p *Project) TargetFrameworks() []framework.Moniker {
	var out []framework.Moniker
	for _, s := range p.Frameworks {
		if !s.Framework.IsUnsupported() {
			out = append(out, s.Framework)
		}
	}
	if len(out) == 0 {
		return []framework.Moniker{p.TargetFramework}
	}
	return out
}

// DependenciesFor returns the shared dependencies followed by those declared for fw.
// A framework entry naming a library already in the shared list replaces it in
// place.
func (p *Project) DependenciesFor(fw framework.Moniker) []Dependency {
	deps := make([]Dependency, len(p.Dependencies))
	copy(deps, p.Dependencies)

	for _, s := range p.Frameworks {
		if !s.Framework.Equal(fw) {
			continue
		}
		for _, d := range s.Dependencies {
			replaced := false
			for i := range deps {
				if strings.EqualFold(deps[i].Name, d.Name) {
					deps[i] = d
					replaced = true
					break
				}
			}
			if !replaced {
				deps = append(deps, d)
			}
		}
	}
	return deps
}

// Dependency returns the shared dependency called name.
func (p *Project) Dependency(name string) (Dependency, bool) {
	for _, d := range p.Dependencies {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Dependency{}, false
}
