package provider

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/albertocavalcante/go-dnxdeps/feed"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// PackageRepository resolves dependencies from a package feed. It picks the highest
// version the range allows, then the dependency group and assembly group nearest to
// the requested framework.
type PackageRepository struct {
	source feed.Source
	table  *framework.Table

	mu       sync.Mutex
	resolved map[string]*library.Description // lower(name@version) -> description
}

// NewPackageRepository returns a provider over source. A nil table selects
// framework.Default().
func NewPackageRepository(source feed.Source, table *framework.Table) *PackageRepository {
	if table == nil {
		table = framework.Default()
	}
	return &PackageRepository{
		source:   source,
		table:    table,
		resolved: make(map[string]*library.Description),
	}
}

// Name returns "package".
func (p *PackageRepository) Name() string {
	return "package"
}

// Source returns the feed the provider reads.
func (p *PackageRepository) Source() feed.Source {
	return p.source
}

// Resolve implements Provider.
func (p *PackageRepository) Resolve(ctx context.Context, name string, r *semver.Range, fw framework.Moniker) (*library.Description, error) {
	versions, err := p.source.Versions(ctx, name)
	if err != nil {
		return nil, notFound(err)
	}
	best, ok := semver.Best(r, versions)
	if !ok {
		return nil, fmt.Errorf("no version of %s satisfies %s: %w", name, r, ErrNotFound)
	}
	pkg, err := p.source.Metadata(ctx, name, best)
	if err != nil {
		return nil, notFound(err)
	}

	id := library.Identity{Name: pkg.ID, Version: pkg.Version}
	desc := &library.Description{
		Identity:     id,
		Framework:    fw,
		Type:         library.Package,
		Dependencies: []manifest.Dependency{},
		Assemblies:   []library.Assembly{},
		Path:         pkg.Path,
	}

	if i, ok := p.nearest(fw, len(pkg.DependencyGroups), func(i int) string { return pkg.DependencyGroups[i].TargetFramework }); ok {
		for _, d := range pkg.DependencyGroups[i].Dependencies {
			var rng *semver.Range
			if d.Range != "" {
				rng, _ = semver.ParseRange(d.Range)
			}
			desc.Dependencies = append(desc.Dependencies, manifest.Dependency{Name: d.ID, Version: rng})
		}
	}
	if i, ok := p.nearest(fw, len(pkg.AssemblyGroups), func(i int) string { return pkg.AssemblyGroups[i].TargetFramework }); ok {
		for _, rel := range pkg.AssemblyGroups[i].Assemblies {
			path := filepath.FromSlash(rel)
			if pkg.Path != "" && !filepath.IsAbs(path) {
				path = filepath.Join(pkg.Path, path)
			}
			desc.Assemblies = append(desc.Assemblies, library.Assembly{
				Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Path:    path,
				Library: id,
			})
		}
	}

	p.mu.Lock()
	p.resolved[strings.ToLower(id.String())] = desc
	p.mu.Unlock()
	return desc, nil
}

// nearest picks the group whose framework is nearest fw. Groups without a framework
// apply to any framework.
func (p *PackageRepository) nearest(fw framework.Moniker, n int, frameworkOf func(int) string) (int, bool) {
	if n == 0 {
		return 0, false
	}
	candidates := make([]framework.Moniker, n)
	for i := range candidates {
		if text := frameworkOf(i); text != "" {
			candidates[i] = p.table.Parse(text)
		} else {
			candidates[i] = framework.Any
		}
	}
	chosen, ok := p.table.Nearest(fw, candidates)
	if !ok {
		return 0, false
	}
	for i, c := range candidates {
		if c.Equal(chosen) {
			return i, true
		}
	}
	return 0, false
}

// AssembliesByName groups the assemblies of every package this provider returned by
// library name. Each name's assemblies are ordered by version, then path.
func (p *PackageRepository) AssembliesByName() map[string][]library.Assembly {
	p.mu.Lock()
	descs := make([]*library.Description, 0, len(p.resolved))
	for _, d := range p.resolved {
		descs = append(descs, d)
	}
	p.mu.Unlock()

	out := make(map[string][]library.Assembly)
	for _, d := range descs {
		out[d.Identity.Name] = append(out[d.Identity.Name], d.Assemblies...)
	}
	for name, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			if c := semver.Compare(list[i].Library.Version, list[j].Library.Version); c != 0 {
				return c < 0
			}
			return list[i].Path < list[j].Path
		})
		out[name] = list
	}
	return out
}

// notFound maps a feed miss to ErrNotFound and passes failures through.
func notFound(err error) error {
	if errors.Is(err, feed.ErrPackageNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

var _ Provider = (*PackageRepository)(nil)
