// Package dnxdeps resolves the dependency graphs of project.json based projects.
//
// A project names its dependencies with version ranges and lists the target
// frameworks it builds for. Resolution walks those dependencies breadth-first
// through an ordered list of providers (local projects, then packages, then an
// unresolved placeholder) and selects, for every library name, the version
// requested nearest to the root.
//
// # Quick Start
//
// Resolve every target framework of a project:
//
//	res, err := dnxdeps.ResolveProject(ctx, "src/MyApp", "Debug",
//	    dnxdeps.WithPackagesDir(filepath.Join(home, ".dnx", "packages")),
//	)
//	for _, t := range res.Targets {
//	    fmt.Println(t.Framework.ShortName(), len(t.Graph.Nodes))
//	}
//
// For repeated resolution against one framework, create a Context with New and
// call WalkProject; library lookups and whole walks are cached per context.
//
// # Thread Safety
//
// Context and Resolution are safe for concurrent use.
package dnxdeps

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/lockfile"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
)

// Resolution holds one resolved graph per target framework of a project.
type Resolution struct {
	Project *manifest.Project
	Targets []Target
}

// Target is the result of resolving a project for one framework.
type Target struct {
	Framework framework.Moniker
	Context   *Context
	Graph     *graph.Graph
}

// Target returns the target for fw.
func (r *Resolution) Target(fw framework.Moniker) (Target, bool) {
	for _, t := range r.Targets {
		if t.Framework.Equal(fw) {
			return t, true
		}
	}
	return Target{}, false
}

// Lockfile snapshots every target into one lock file.
func (r *Resolution) Lockfile() *lockfile.Lockfile {
	graphs := make([]*graph.Graph, 0, len(r.Targets))
	for _, t := range r.Targets {
		graphs = append(graphs, t.Graph)
	}
	return lockfile.FromGraphs(graphs...)
}

// ResolveProject parses the manifest in dir and resolves it for each of its target
// frameworks concurrently. Each framework gets its own Context. The first failure
// cancels the remaining walks.
func ResolveProject(ctx context.Context, dir, configuration string, opts ...Option) (*Resolution, error) {
	cfg, err := newContextConfig(opts...)
	if err != nil {
		return nil, err
	}
	if !manifest.HasManifest(cfg.fs, dir) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoManifest)
	}
	p, err := manifest.Parse(cfg.fs, dir, manifest.WithFrameworkTable(cfg.table))
	if err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}

	frameworks := p.TargetFrameworks()
	contexts := make([]*Context, len(frameworks))
	for i, fw := range frameworks {
		if contexts[i], err = New(p.Dir(), configuration, fw, opts...); err != nil {
			return nil, err
		}
	}

	targets := make([]Target, len(contexts))
	eg, egctx := errgroup.WithContext(ctx)
	for i, c := range contexts {
		eg.Go(func() error {
			g, err := c.WalkManifest(egctx, p)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", cfg.table.ShortName(c.Framework()), err)
			}
			targets[i] = Target{Framework: c.Framework(), Context: c, Graph: g}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Resolution{Project: p, Targets: targets}, nil
}
