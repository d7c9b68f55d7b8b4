// Package walker resolves a project's dependency graph.
//
// A walk is breadth-first from the root. Every dependency is resolved through a
// provider (normally a provider.Chain) by way of a cache.Cache, so repeated requests
// for the same (name, range, framework, configuration) reach the provider at most
// once per cache.
//
// The first request for a name fixes its node: requests nearer the root win, and ties
// go to the request discovered first, with dependencies visited in declaration order.
// Later requests for the same name get an edge to the existing node. When such an
// edge would close a loop it is flagged as a cycle, so a walk over any finite set of
// declarations terminates with each distinct name appearing once.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/cache"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/provider"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// ErrNilProvider is returned by New when no provider is given.
var ErrNilProvider = errors.New("walker: provider is nil")

// Option configures a Walker.
type Option func(*config) error

type config struct {
	configuration string
	logger        *slog.Logger
}

// WithConfiguration sets the build configuration (e.g. "Debug") that is part of
// every cache key.
func WithConfiguration(name string) Option {
	return func(c *config) error {
		c.configuration = name
		return nil
	}
}

// WithLogger sets a structured logger. If not set, the walker is silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// Walker builds dependency graphs. A Walker holds no per-walk state and may run
// several walks concurrently; the cache is the only shared state.
type Walker struct {
	provider      provider.Provider
	cache         *cache.Cache[*library.Description]
	table         *framework.Table
	configuration string
	log           *slog.Logger
}

// New creates a walker that resolves through p. A nil cache gets a private one; a
// nil table uses framework.Default().
func New(p provider.Provider, c *cache.Cache[*library.Description], table *framework.Table, opts ...Option) (*Walker, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if c == nil {
		c = cache.New[*library.Description]()
	}
	if table == nil {
		table = framework.Default()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Walker{
		provider:      p,
		cache:         c,
		table:         table,
		configuration: cfg.configuration,
		log:           logger,
	}, nil
}

// Configuration returns the build configuration the walker resolves for.
func (w *Walker) Configuration() string {
	return w.configuration
}

// Table returns the framework table the walker was created with.
func (w *Walker) Table() *framework.Table {
	return w.table
}

type frontierItem struct {
	key   graph.Key
	desc  *library.Description
	depth int
}

// Walk resolves rootName pinned to rootVersion (zero means any version) and its
// transitive dependencies for fw.
//
// The context is checked before each library is expanded; on cancellation the
// partial graph is discarded and the context's error returned. A provider failure
// aborts the walk with an error wrapping *provider.Error.
func (w *Walker) Walk(ctx context.Context, rootName string, rootVersion semver.Version, fw framework.Moniker) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := w.log.With("root", rootName, "framework", fw.ShortName())
	log.Debug("walk started")

	rootDesc, err := w.resolve(ctx, rootName, semver.Exactly(rootVersion), fw)
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(fw, w.configuration)
	rootKey := b.AddNode(rootDesc, 0)
	frontier := []frontierItem{{key: rootKey, desc: rootDesc, depth: 0}}
	expanded := make(map[string]bool)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			log.Debug("walk cancelled", "error", err)
			return nil, err
		}

		current := frontier[0]
		frontier = frontier[1:]

		name := strings.ToLower(current.key.Name)
		if expanded[name] {
			continue
		}
		expanded[name] = true

		for _, dep := range current.desc.Dependencies {
			requested := dep.Version.String()

			if existing, ok := b.Lookup(dep.Name); ok {
				link(b, log, current.key, existing, requested)
				continue
			}

			desc, err := w.resolve(ctx, dep.Name, dep.Version, fw)
			if err != nil {
				return nil, err
			}
			// A provider may answer under a name that differs from the request.
			if existing, ok := b.Lookup(desc.Identity.Name); ok {
				link(b, log, current.key, existing, requested)
				continue
			}

			key := b.AddNode(desc, current.depth+1)
			b.AddEdge(current.key, key, requested, false)
			log.Debug("resolved",
				"name", key.Name,
				"version", key.Version,
				"type", desc.Type.String(),
				"depth", current.depth+1,
			)
			frontier = append(frontier, frontierItem{key: key, desc: desc, depth: current.depth + 1})
		}
	}

	g := b.Build()
	for _, c := range g.Conflicts {
		log.Debug("version conflict", "name", c.Name, "requester", c.Requester.String(), "requested", c.Requested, "selected", c.Selected.String())
	}
	log.Debug("walk finished", "libraries", len(g.Nodes), "conflicts", len(g.Conflicts))
	return g, nil
}

// link adds an edge to a node that is already in the graph, flagging it when the
// target already reaches the source.
func link(b *graph.Builder, log *slog.Logger, from, to graph.Key, requested string) {
	cycle := b.Reaches(to, from)
	b.AddEdge(from, to, requested, cycle)
	if cycle {
		log.Debug("cycle", "from", from.String(), "to", to.String())
	}
}

// resolve looks a dependency up through the cache.
func (w *Walker) resolve(ctx context.Context, name string, r *semver.Range, fw framework.Moniker) (*library.Description, error) {
	key := cache.NewKey(name, r, fw, w.configuration)
	desc, err := w.cache.Get(ctx, key, func(ctx context.Context) (*library.Description, error) {
		return w.provider.Resolve(ctx, name, r, fw)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("resolve %s@%s: %w", name, r, err)
	}
	if desc == nil {
		return nil, fmt.Errorf("resolve %s@%s: provider %s returned no library", name, r, w.provider.Name())
	}
	return desc, nil
}
