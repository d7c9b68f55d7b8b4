// Package feed provides package sources: places the package-repository provider can
// ask for the versions and metadata of a package.
//
// Sources never touch the network. Dir reads an unpacked local feed laid out as
//
//	{root}/{id}/{version}/{id}.json
//
// and Memory serves packages registered in process. Chain combines several sources
// in priority order.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// ErrPackageNotFound reports that a source has no package, or no such version, for
// an id. Any other error from a source is a failure of the source itself.
var ErrPackageNotFound = errors.New("package not found")

// Source serves package metadata.
type Source interface {
	// Versions lists every version of id the source has, in ascending order.
	Versions(ctx context.Context, id string) ([]semver.Version, error)
	// Metadata returns one version of a package.
	Metadata(ctx context.Context, id string, v semver.Version) (*Package, error)
	// Location describes where the source reads from, for logs and errors.
	Location() string
}

// PackageDependency is one dependency a package declares.
type PackageDependency struct {
	ID string `json:"id"`
	// Range is a version range; empty means any version.
	Range string `json:"range,omitempty"`
}

// DependencyGroup lists the dependencies a package has on one target framework. An
// empty TargetFramework applies to every framework.
type DependencyGroup struct {
	TargetFramework string              `json:"targetFramework,omitempty"`
	Dependencies    []PackageDependency `json:"dependencies"`
}

// AssemblyGroup lists assemblies, relative to the package directory, built for one
// target framework. An empty TargetFramework applies to every framework.
type AssemblyGroup struct {
	TargetFramework string   `json:"targetFramework,omitempty"`
	Assemblies      []string `json:"assemblies"`
}

// Package is the metadata of one package version.
type Package struct {
	ID               string            `json:"id"`
	Version          semver.Version    `json:"version"`
	Description      string            `json:"description,omitempty"`
	DependencyGroups []DependencyGroup `json:"dependencyGroups,omitempty"`
	AssemblyGroups   []AssemblyGroup   `json:"assemblyGroups,omitempty"`

	// Path is the unpacked package directory. Sources fill it in; it is not read
	// from metadata.
	Path string `json:"-"`
}

// String formats the package as id@version.
func (p *Package) String() string {
	return p.ID + "@" + p.Version.String()
}

// Validate checks that the metadata is usable by the resolver.
// Returns nil if valid, or ValidationErrors containing all issues found.
func (p *Package) Validate() error {
	var errs ValidationErrors

	if p.ID == "" {
		errs.Add("id", "required field is missing")
	}
	if p.Version.IsZero() {
		errs.Add("version", "required field is missing")
	}

	for i, g := range p.DependencyGroups {
		for j, d := range g.Dependencies {
			field := fmt.Sprintf("dependencyGroups[%d].dependencies[%d]", i, j)
			if d.ID == "" {
				errs.Add(field+".id", "required field is missing")
			}
			if d.Range != "" {
				if _, err := semver.ParseRange(d.Range); err != nil {
					errs.Add(field+".range", fmt.Sprintf("invalid version range %q", d.Range))
				}
			}
		}
	}

	for i, g := range p.AssemblyGroups {
		for j, a := range g.Assemblies {
			if a == "" {
				errs.Add(fmt.Sprintf("assemblyGroups[%d].assemblies[%d]", i, j), "must not be empty")
			}
		}
	}

	return errs.ToError()
}
