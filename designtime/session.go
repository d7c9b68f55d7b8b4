package designtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	dnxdeps "github.com/albertocavalcante/go-dnxdeps"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
)

var (
	// ErrNotInitialized is returned by Refresh and Watch before Initialize succeeds.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrNoProjectFolder is returned for an InitializeMessage without a folder.
	ErrNoProjectFolder = errors.New("initialize: project folder is required")
)

// Option configures a Session.
type Option func(*Session)

// WithFS sets the filesystem projects are read from. Watch only works on a
// filesystem backed by real directories.
func WithFS(fs afero.Fs) Option {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithContextOptions passes options to every dependency context the session
// creates, e.g. package directories or metrics.
func WithContextOptions(opts ...dnxdeps.Option) Option {
	return func(s *Session) {
		s.contextOpts = append(s.contextOpts, opts...)
	}
}

// WithLogger sets a structured logger. If not set, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Session holds the design-time state of one project. It is safe for concurrent
// use.
type Session struct {
	fs          afero.Fs
	contextOpts []dnxdeps.Option
	log         *slog.Logger

	mu     sync.Mutex
	init   *InitializeMessage
	graphs map[string]*graph.Graph // short framework name -> last resolved graph
	gen    uint64
}

// NewSession creates a session. Nothing is resolved until Initialize.
func NewSession(opts ...Option) *Session {
	s := &Session{graphs: make(map[string]*graph.Graph)}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// Initialize resolves the project named by msg for every target framework.
// Frameworks resolve concurrently; one that fails is reported with Error set
// rather than failing the whole message.
func (s *Session) Initialize(ctx context.Context, msg InitializeMessage) (*ConfigurationsMessage, error) {
	if msg.ProjectFolder == "" {
		return nil, ErrNoProjectFolder
	}
	if msg.Configuration == "" {
		msg.Configuration = dnxdeps.DefaultConfiguration
	}

	s.mu.Lock()
	s.init = &msg
	s.graphs = make(map[string]*graph.Graph)
	s.mu.Unlock()

	out, _, err := s.Refresh(ctx)
	return out, err
}

// Refresh re-reads the manifest, resolves it again and reports, per framework
// short name, how each graph changed since the previous resolution. A framework
// that fails to resolve has no diff entry and keeps its previous graph.
func (s *Session) Refresh(ctx context.Context) (*ConfigurationsMessage, map[string]*graph.Diff, error) {
	s.mu.Lock()
	if s.init == nil {
		s.mu.Unlock()
		return nil, nil, ErrNotInitialized
	}
	init := *s.init
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	out, graphs, err := s.compute(ctx, init)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	diffs := make(map[string]*graph.Diff, len(graphs))
	for name, g := range graphs {
		diffs[name] = graph.Compare(s.graphs[name], g)
	}
	// A newer refresh has started; its result replaces this one.
	if gen == s.gen {
		for name, g := range graphs {
			s.graphs[name] = g
		}
	}
	return out, diffs, nil
}

// Graph returns the last graph resolved for the framework with short name fw.
func (s *Session) Graph(fw string) *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphs[fw]
}

// Update is delivered by Watch after each refresh.
type Update struct {
	Configurations *ConfigurationsMessage
	Diffs          map[string]*graph.Diff
	Err            error
}

// Watch refreshes whenever the project manifest changes and passes the result to
// fn. A change that arrives while a refresh is running cancels it; only the
// latest refresh is delivered. fn is never called concurrently. Watch returns nil
// when ctx ends.
func (s *Session) Watch(ctx context.Context, fn func(Update)) error {
	s.mu.Lock()
	if s.init == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	folder := s.init.ProjectFolder
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", folder, err)
	}
	defer watcher.Close()
	if err := watcher.Add(folder); err != nil {
		return fmt.Errorf("watch %s: %w", folder, err)
	}

	var (
		wg      sync.WaitGroup
		deliver sync.Mutex
		cancel  context.CancelFunc = func() {}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), manifest.FileName) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.log.Debug("manifest changed", "path", ev.Name, "op", ev.Op.String())

			cancel()
			var rctx context.Context
			rctx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, diffs, err := s.Refresh(rctx)
				if rctx.Err() != nil {
					return
				}
				deliver.Lock()
				defer deliver.Unlock()
				fn(Update{Configurations: out, Diffs: diffs, Err: err})
			}()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watch error", "folder", folder, "error", err)
		}
	}
}

// compute resolves every target framework of the project in init.
func (s *Session) compute(ctx context.Context, init InitializeMessage) (*ConfigurationsMessage, map[string]*graph.Graph, error) {
	if !manifest.HasManifest(s.fs, init.ProjectFolder) {
		return nil, nil, fmt.Errorf("%s: %w", init.ProjectFolder, dnxdeps.ErrNoManifest)
	}
	p, err := manifest.Parse(s.fs, init.ProjectFolder)
	if err != nil {
		return nil, nil, err
	}

	frameworks := p.TargetFrameworks()
	configs := make([]ConfigurationData, len(frameworks))
	resolved := make([]*graph.Graph, len(frameworks))

	var eg errgroup.Group
	for i, fw := range frameworks {
		eg.Go(func() error {
			configs[i], resolved[i] = s.configure(ctx, p, init.Configuration, fw)
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	graphs := make(map[string]*graph.Graph, len(frameworks))
	for i, g := range resolved {
		if g != nil {
			graphs[configs[i].FrameworkName] = g
		}
	}

	commands := p.Commands
	if commands == nil {
		commands = map[string]string{}
	}
	return &ConfigurationsMessage{Configurations: configs, Commands: commands}, graphs, nil
}

// configure resolves one framework. Failures are recorded in the returned data.
func (s *Session) configure(ctx context.Context, p *manifest.Project, configuration string, fw framework.Moniker) (ConfigurationData, *graph.Graph) {
	data := ConfigurationData{
		FrameworkName:     fw.ShortName(),
		LongFrameworkName: fw.String(),
		CompilationSettings: CompilationSettings{
			AllowUnsafe:      p.CompilationOptions.AllowUnsafe,
			Platform:         p.CompilationOptions.Platform.String(),
			WarningsAsErrors: p.CompilationOptions.WarningsAsErrors,
		},
		Dependencies: []DependencyDescription{},
		References:   []string{},
		Diagnostics:  []string{},
	}

	opts := append([]dnxdeps.Option{dnxdeps.WithFS(s.fs)}, s.contextOpts...)
	c, err := dnxdeps.New(p.Dir(), configuration, fw, opts...)
	if err != nil {
		data.Error = err.Error()
		return data, nil
	}
	g, err := c.WalkManifest(ctx, p)
	if err != nil {
		s.log.Debug("configuration failed", "framework", data.FrameworkName, "error", err)
		data.Error = err.Error()
		return data, nil
	}

	describe(&data, g)
	return data, g
}

// describe fills data from a resolved graph.
func describe(data *ConfigurationData, g *graph.Graph) {
	for _, key := range g.Order {
		if key == g.Root {
			continue
		}
		node := g.Nodes[key]
		d := DependencyDescription{
			Name:         key.Name,
			Version:      key.Version,
			Type:         node.Type().String(),
			Resolved:     node.Type() != library.Unresolved,
			Dependencies: make([]string, 0, len(node.Dependencies)),
		}
		if node.Library != nil {
			d.Path = node.Library.Path
		}
		for _, dep := range node.Dependencies {
			d.Dependencies = append(d.Dependencies, dep.Name)
		}
		data.Dependencies = append(data.Dependencies, d)
	}

	for _, a := range g.AssembliesFor(g.Root.Name) {
		if strings.EqualFold(a.Library.Name, g.Root.Name) {
			continue
		}
		data.References = append(data.References, a.Path)
	}

	for _, key := range g.Unresolved() {
		if key == g.Root {
			continue
		}
		data.Diagnostics = append(data.Diagnostics, fmt.Sprintf("dependency %s could not be resolved", key))
	}
	for _, c := range g.Conflicts {
		data.Diagnostics = append(data.Diagnostics, c.String())
	}
}
