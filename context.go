package dnxdeps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/cache"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/lockfile"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
	"github.com/albertocavalcante/go-dnxdeps/provider"
	"github.com/albertocavalcante/go-dnxdeps/semver"
	"github.com/albertocavalcante/go-dnxdeps/walker"
)

// DefaultConfiguration is used when New is given an empty configuration.
const DefaultConfiguration = "Debug"

// Context resolves dependencies for one project directory under one target
// framework and build configuration. It owns its caches; nothing is shared between
// contexts, so independent contexts may be used concurrently.
type Context struct {
	projectDir    string
	configuration string
	framework     framework.Moniker
	fs            afero.Fs
	table         *framework.Table
	log           *slog.Logger

	packages  *provider.PackageRepository
	chain     *provider.Chain
	libraries *cache.Cache[*library.Description]
	walks     *cache.Cache[*graph.Graph]
	walker    *walker.Walker

	mu   sync.Mutex
	last *graph.Graph
}

// New creates a context for the project in projectDir. Dependencies are looked up
// in a fixed order: local projects, then packages, then an unresolved placeholder.
// An unsupported fw selects the framework table's baseline.
func New(projectDir, configuration string, fw framework.Moniker, opts ...Option) (*Context, error) {
	cfg, err := newContextConfig(opts...)
	if err != nil {
		return nil, err
	}
	if projectDir == "" {
		projectDir = "."
	}
	projectDir, err = filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if configuration == "" {
		configuration = DefaultConfiguration
	}
	if fw.IsUnsupported() {
		fw = cfg.table.Baseline()
	}
	logger := cfg.log().With("project", projectDir, "framework", cfg.table.ShortName(fw), "configuration", configuration)

	resolver := cfg.resolver
	if resolver == nil {
		spr, err := provider.NewSearchPathResolver(cfg.fs, projectDir)
		if err != nil {
			return nil, fmt.Errorf("project search paths: %w", err)
		}
		resolver = spr
	}
	resolver = projectDirResolver{fs: cfg.fs, dir: projectDir, next: resolver}

	source, err := cfg.source()
	if err != nil {
		return nil, fmt.Errorf("package source: %w", err)
	}
	packages := provider.NewPackageRepository(source, cfg.table)
	chain := provider.NewChain(logger,
		provider.NewProjectReference(cfg.fs, resolver, configuration, cfg.table),
		packages,
		provider.Unresolved{},
	)

	var libOpts, walkOpts []cache.Option
	if cfg.metrics != nil {
		libOpts = append(libOpts, cache.WithMetrics(cfg.metrics, "libraries"))
		walkOpts = append(walkOpts, cache.WithMetrics(cfg.metrics, "walks"))
	}
	libraries := cache.New[*library.Description](libOpts...)

	w, err := walker.New(chain, libraries, cfg.table,
		walker.WithConfiguration(configuration),
		walker.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Context{
		projectDir:    projectDir,
		configuration: configuration,
		framework:     fw,
		fs:            cfg.fs,
		table:         cfg.table,
		log:           logger,
		packages:      packages,
		chain:         chain,
		libraries:     libraries,
		walks:         cache.New[*graph.Graph](walkOpts...),
		walker:        w,
	}, nil
}

// ProjectDir returns the directory the context was created for.
func (c *Context) ProjectDir() string { return c.projectDir }

// Configuration returns the build configuration.
func (c *Context) Configuration() string { return c.configuration }

// Framework returns the target framework.
func (c *Context) Framework() framework.Moniker { return c.framework }

// FrameworkTable returns the compatibility data the context resolves with.
func (c *Context) FrameworkTable() *framework.Table { return c.table }

// Providers returns the dependency providers in lookup order.
func (c *Context) Providers() []provider.Provider { return c.chain.Providers() }

// Project parses the manifest in the project directory. It is re-read on every
// call.
func (c *Context) Project() (*manifest.Project, error) {
	if !manifest.HasManifest(c.fs, c.projectDir) {
		return nil, fmt.Errorf("%s: %w", c.projectDir, ErrNoManifest)
	}
	return manifest.Parse(c.fs, c.projectDir, manifest.WithFrameworkTable(c.table), manifest.WithLogger(c.log))
}

// Walk resolves name pinned to version (zero means any version) and its transitive
// dependencies. Results are memoized per context: walking the same root again
// returns the same graph.
func (c *Context) Walk(ctx context.Context, name string, version semver.Version) (*graph.Graph, error) {
	key := cache.NewKey(name, semver.Exactly(version), c.framework, c.configuration)
	g, err := c.walks.Get(ctx, key, func(ctx context.Context) (*graph.Graph, error) {
		return c.walker.Walk(ctx, name, version, c.framework)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.last = g
	c.mu.Unlock()
	return g, nil
}

// WalkManifest walks p as the root.
func (c *Context) WalkManifest(ctx context.Context, p *manifest.Project) (*graph.Graph, error) {
	if p == nil {
		return nil, ErrNilProject
	}
	return c.Walk(ctx, p.Name, p.Version)
}

// WalkProject parses the project directory's manifest and walks it.
func (c *Context) WalkProject(ctx context.Context) (*graph.Graph, error) {
	p, err := c.Project()
	if err != nil {
		return nil, err
	}
	return c.WalkManifest(ctx, p)
}

// Graph returns the most recently walked graph, or nil before the first walk.
func (c *Context) Graph() *graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// PackageAssembliesByName groups the assemblies of every package resolved in this
// context by library name.
func (c *Context) PackageAssembliesByName() map[string][]library.Assembly {
	return c.packages.AssembliesByName()
}

// AssemblyLookup maps each library of the most recent graph to the assemblies it
// and its dependencies contribute. It is empty before the first walk.
func (c *Context) AssemblyLookup() map[string][]library.Assembly {
	g := c.Graph()
	if g == nil {
		return map[string][]library.Assembly{}
	}
	return g.AssemblyLookup()
}

// CacheStats reports activity of the library and walk caches.
func (c *Context) CacheStats() (libraries, walks cache.Stats) {
	return c.libraries.Stats(), c.walks.Stats()
}

// Lock snapshots the most recent graph, walking the project first if nothing has
// been walked yet.
func (c *Context) Lock(ctx context.Context) (*lockfile.Lockfile, error) {
	g := c.Graph()
	if g == nil {
		var err error
		if g, err = c.WalkProject(ctx); err != nil {
			return nil, err
		}
	}
	return lockfile.FromGraphs(g), nil
}

// FrameworkForRuntime maps a runtime identifier such as "dnx-coreclr-win7-x64.1.0"
// to the framework it runs, using the default framework table.
func FrameworkForRuntime(runtimeID string) (framework.Moniker, bool) {
	return framework.ForRuntime(runtimeID)
}

// projectDirResolver makes the context's own project resolvable by name even when
// the wrapped resolver does not know it.
type projectDirResolver struct {
	fs   afero.Fs
	dir  string
	next provider.ProjectResolver
}

func (r projectDirResolver) FindProject(name string) (string, bool, error) {
	if own, ok := manifest.ProjectName(r.fs, r.dir); ok && strings.EqualFold(own, name) {
		return r.dir, true, nil
	}
	return r.next.FindProject(name)
}

var _ provider.ProjectResolver = projectDirResolver{}
