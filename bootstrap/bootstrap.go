// Package bootstrap starts an application by name from a resolved dependency
// context.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	dnxdeps "github.com/albertocavalcante/go-dnxdeps"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// ErrAssemblyNotFound reports that no resolved library provides the named assembly.
var ErrAssemblyNotFound = errors.New("assembly not found")

// EntryPoint runs an application with its arguments and returns its exit code.
type EntryPoint func(ctx context.Context, args []string) int

// Loader finds the entry point of an application by name.
type Loader interface {
	Load(ctx context.Context, name string) (EntryPoint, error)
}

// Bootstrapper is the process entry: it loads the application named by the first
// argument and runs it with the rest.
type Bootstrapper struct {
	Loader Loader
	Out    io.Writer
	Log    *slog.Logger
}

// Run returns -1 without arguments or when the application cannot be loaded, and
// the application's exit code otherwise.
func (b *Bootstrapper) Run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(b.Out, "{app} [args]")
		return -1
	}

	entry, err := b.Loader.Load(ctx, args[0])
	if err != nil || entry == nil {
		b.log().Debug("load failed", "app", args[0], "error", err)
		return -1
	}
	return entry(ctx, args[1:])
}

func (b *Bootstrapper) log() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.New(slog.DiscardHandler)
}

// Executor runs a located assembly.
type Executor interface {
	Execute(ctx context.Context, asm library.Assembly, args []string) (int, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, asm library.Assembly, args []string) (int, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, asm library.Assembly, args []string) (int, error) {
	return f(ctx, asm, args)
}

// GraphLoader loads applications from the graph of a dependency context.
type GraphLoader struct {
	Context  *dnxdeps.Context
	Executor Executor
}

// Load implements Loader.
func (l *GraphLoader) Load(ctx context.Context, name string) (EntryPoint, error) {
	asm, err := l.find(ctx, name)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, args []string) int {
		code, err := l.Executor.Execute(ctx, asm, args)
		if err != nil {
			return -1
		}
		return code
	}, nil
}

// find returns the assembly called name from the context's current graph, walking
// name as a new root when the graph has none. An assembly shipped by the library of
// the same name wins over one shipped by another library.
func (l *GraphLoader) find(ctx context.Context, name string) (library.Assembly, error) {
	if g := l.Context.Graph(); g != nil {
		if asm, ok := search(g, name); ok {
			return asm, nil
		}
	}
	g, err := l.Context.Walk(ctx, name, semver.Version{})
	if err != nil {
		return library.Assembly{}, err
	}
	if asm, ok := search(g, name); ok {
		return asm, nil
	}
	return library.Assembly{}, fmt.Errorf("%s: %w", name, ErrAssemblyNotFound)
}

func search(g *graph.Graph, name string) (library.Assembly, bool) {
	var (
		fallback library.Assembly
		found    bool
	)
	for _, key := range g.Order {
		node := g.Nodes[key]
		if node.Library == nil {
			continue
		}
		for _, a := range node.Library.Assemblies {
			if !strings.EqualFold(a.Name, name) {
				continue
			}
			if strings.EqualFold(a.Library.Name, name) {
				return a, true
			}
			if !found {
				fallback, found = a, true
			}
		}
	}
	return fallback, found
}
