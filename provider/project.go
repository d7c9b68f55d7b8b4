package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// GlobalFileName is the solution-level file that lists extra project search paths.
const GlobalFileName = "global.json"

// ProjectResolver locates local projects by name. An error means the lookup itself
// failed and is distinct from a project that does not exist.
type ProjectResolver interface {
	FindProject(name string) (dir string, ok bool, err error)
}

// ProjectReference resolves dependencies to local projects. The version range is not
// consulted: a local project always shadows packages of the same name.
type ProjectReference struct {
	fs            afero.Fs
	resolver      ProjectResolver
	configuration string
	table         *framework.Table
}

// NewProjectReference returns a provider that finds projects with resolver and
// reports their build output for configuration. A nil table selects
// framework.Default().
func NewProjectReference(fsys afero.Fs, resolver ProjectResolver, configuration string, table *framework.Table) *ProjectReference {
	if table == nil {
		table = framework.Default()
	}
	return &ProjectReference{fs: fsys, resolver: resolver, configuration: configuration, table: table}
}

// Name returns "project".
func (p *ProjectReference) Name() string {
	return "project"
}

// Resolve implements Provider. The project's manifest is re-read on every call, so
// callers cache results.
func (p *ProjectReference) Resolve(_ context.Context, name string, _ *semver.Range, fw framework.Moniker) (*library.Description, error) {
	dir, ok, err := p.resolver.FindProject(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no project %s: %w", name, ErrNotFound)
	}
	project, err := manifest.Parse(p.fs, dir, manifest.WithFrameworkTable(p.table))
	if err != nil {
		return nil, err
	}

	target := fw
	if chosen, ok := p.table.Nearest(fw, project.TargetFrameworks()); ok {
		target = chosen
	}

	id := library.Identity{Name: project.Name, Version: project.Version}
	output := filepath.Join(dir, "bin", p.configuration, p.table.ShortName(target), project.Name+".dll")
	return &library.Description{
		Identity:     id,
		Framework:    fw,
		Type:         library.Project,
		Dependencies: project.DependenciesFor(target),
		Assemblies:   []library.Assembly{{Name: project.Name, Path: output, Library: id}},
		Path:         dir,
	}, nil
}

var _ Provider = (*ProjectReference)(nil)

// SearchPathResolver knows every project found one level below its search paths:
// the parent directory of the root project, plus the "sources" listed in the
// nearest global.json above it. When two directories declare the same project name
// the first search path wins.
type SearchPathResolver struct {
	fs    afero.Fs
	paths []string

	once     sync.Once
	projects map[string]string // lower(name) -> dir
	names    map[string]string // lower(name) -> declared name
	scanErr  error
}

// NewSearchPathResolver computes the search paths for the project in rootDir. A
// relative rootDir is taken from the working directory. The directories are scanned
// lazily on first lookup.
func NewSearchPathResolver(fsys afero.Fs, rootDir string) (*SearchPathResolver, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	paths := []string{filepath.Dir(rootDir)}

	global, err := findGlobalFile(fsys, rootDir)
	if err != nil {
		return nil, err
	}
	if global != "" {
		sources, err := readSources(fsys, global)
		if err != nil {
			return nil, err
		}
		base := filepath.Dir(global)
		for _, s := range sources {
			dir := filepath.FromSlash(s)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(base, dir)
			}
			paths = appendUnique(paths, filepath.Clean(dir))
		}
	}
	return &SearchPathResolver{fs: fsys, paths: paths}, nil
}

// SearchPaths returns the directories scanned for projects, in priority order.
func (s *SearchPathResolver) SearchPaths() []string {
	return append([]string(nil), s.paths...)
}

// FindProject implements ProjectResolver. Names match case-insensitively. A search
// path that could not be read fails every lookup that misses, since the project may
// live there.
func (s *SearchPathResolver) FindProject(name string) (string, bool, error) {
	s.once.Do(s.scan)
	if dir, ok := s.projects[strings.ToLower(name)]; ok {
		return dir, true, nil
	}
	return "", false, s.scanErr
}

// Projects returns every known project name mapped to its directory.
func (s *SearchPathResolver) Projects() (map[string]string, error) {
	s.once.Do(s.scan)
	out := make(map[string]string, len(s.projects))
	for key, dir := range s.projects {
		out[s.names[key]] = dir
	}
	return out, s.scanErr
}

func (s *SearchPathResolver) scan() {
	s.projects = make(map[string]string)
	s.names = make(map[string]string)
	for _, path := range s.paths {
		entries, err := afero.ReadDir(s.fs, path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.scanErr = errors.Join(s.scanErr, fmt.Errorf("scan %s: %w", path, err))
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(path, e.Name())
			name, ok := manifest.ProjectName(s.fs, dir)
			if !ok {
				continue
			}
			key := strings.ToLower(name)
			if _, exists := s.projects[key]; !exists {
				s.projects[key] = dir
				s.names[key] = name
			}
		}
	}
}

var _ ProjectResolver = (*SearchPathResolver)(nil)

// findGlobalFile walks upward from dir to the nearest global.json. It returns "" when
// there is none.
func findGlobalFile(fsys afero.Fs, dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, GlobalFileName)
		ok, err := afero.Exists(fsys, candidate)
		if err != nil {
			return "", fmt.Errorf("probe %s: %w", candidate, err)
		}
		if ok {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func readSources(fsys afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var global struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(data, &global); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return global.Sources, nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// StaticProjects is a ProjectResolver over a fixed name -> directory map.
type StaticProjects map[string]string

// FindProject implements ProjectResolver. Names match case-insensitively.
func (m StaticProjects) FindProject(name string) (string, bool, error) {
	if dir, ok := m[name]; ok {
		return dir, true, nil
	}
	for n, dir := range m {
		if strings.EqualFold(n, name) {
			return dir, true, nil
		}
	}
	return "", false, nil
}

var _ ProjectResolver = StaticProjects(nil)
