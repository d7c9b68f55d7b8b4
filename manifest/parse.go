package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	table  *framework.Table
	logger *slog.Logger
}

// WithFrameworkTable parses framework monikers with t instead of the default table.
func WithFrameworkTable(t *framework.Table) ParseOption {
	return func(c *parseConfig) {
		if t != nil {
			c.table = t
		}
	}
}

// WithLogger reports skipped manifest values to l.
func WithLogger(l *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// rawProject is the on-disk shape. Every field stays raw so that a mistyped value
// falls back to its default in decode instead of failing the whole document.
type rawProject struct {
	Name               json.RawMessage `json:"name"`
	Version            json.RawMessage `json:"version"`
	Description        json.RawMessage `json:"description"`
	Authors            json.RawMessage `json:"authors"`
	TargetFramework    json.RawMessage `json:"targetFramework"`
	CompilationOptions json.RawMessage `json:"compilationOptions"`
	Dependencies       json.RawMessage `json:"dependencies"`
	Frameworks         json.RawMessage `json:"frameworks"`
	Commands           json.RawMessage `json:"commands"`
	Exclude            json.RawMessage `json:"exclude"`
}

type rawCompilationOptions struct {
	AllowUnsafe      json.RawMessage `json:"allowUnsafe"`
	Platform         json.RawMessage `json:"platform"`
	WarningsAsErrors json.RawMessage `json:"warningsAsErrors"`
}

// manifestPath resolves a directory or direct file path to the manifest file.
func manifestPath(path string) string {
	if filepath.Base(path) == FileName {
		return path
	}
	return filepath.Join(path, FileName)
}

func dirOf(manifest string) string {
	return filepath.Dir(manifest)
}

// dirName is the name a project without a "name" field takes: its directory's base
// name, resolved against the working directory when the path is relative.
func dirName(manifest string) string {
	dir := dirOf(manifest)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(dir)
}

// HasManifest reports whether path is, or is a directory containing, a manifest.
func HasManifest(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, manifestPath(path))
	return err == nil && ok
}

// Parse reads the manifest at path, which may be the project directory or the
// manifest file itself. Callers probe with HasManifest first; a missing file is
// reported as a read error.
func Parse(fs afero.Fs, path string, opts ...ParseOption) (*Project, error) {
	cfg := parseConfig{table: framework.Default(), logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	file := manifestPath(path)
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var raw rawProject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidManifestError{Path: file, Reason: "malformed JSON", Err: err}
	}
	return decode(file, &raw, &cfg)
}

// ProjectName returns the name of the project in dir without building a Project.
// The bool is false when dir holds no manifest.
func ProjectName(fs afero.Fs, dir string) (string, bool) {
	if !HasManifest(fs, dir) {
		return "", false
	}
	file := manifestPath(dir)
	fallback := dirName(file)

	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return fallback, true
	}
	var raw struct {
		Name json.RawMessage `json:"name"`
	}
	if json.Unmarshal(data, &raw) != nil {
		return fallback, true
	}
	if name := strings.TrimSpace(asString(raw.Name)); name != "" {
		return name, true
	}
	return fallback, true
}

// decode applies every defaulting rule in one place.
func decode(file string, raw *rawProject, cfg *parseConfig) (*Project, error) {
	table := cfg.table
	p := &Project{
		ManifestPath: file,
		Name:         strings.TrimSpace(asString(raw.Name)),
		Version:      DefaultVersion,
		Description:  asString(raw.Description),
		Authors:      asStrings(raw.Authors),
		Commands:     map[string]string{},
	}
	if p.Name == "" {
		p.Name = dirName(file)
	}
	if v, err := semver.ParseVersion(asString(raw.Version)); err == nil {
		p.Version = v
	}

	p.TargetFramework = table.Baseline()
	if fw := table.Parse(asString(raw.TargetFramework)); !fw.IsUnsupported() {
		p.TargetFramework = fw
	}

	p.CompilationOptions = decodeCompilationOptions(raw.CompilationOptions)

	deps, err := decodeDependencies(file, "dependencies", raw.Dependencies)
	if err != nil {
		return nil, err
	}
	p.Dependencies = deps

	frameworks, _ := objectEntries(raw.Frameworks)
	for _, e := range frameworks {
		fw := table.Parse(e.key)
		if sectionFor(p.Frameworks, fw) {
			continue
		}
		var section struct {
			Dependencies json.RawMessage `json:"dependencies"`
		}
		_ = json.Unmarshal(e.value, &section)
		deps, err := decodeDependencies(file, "frameworks."+e.key+".dependencies", section.Dependencies)
		if err != nil {
			return nil, err
		}
		p.Frameworks = append(p.Frameworks, FrameworkSection{Key: e.key, Framework: fw, Dependencies: deps})
	}

	commands, _ := objectEntries(raw.Commands)
	for _, e := range commands {
		var cmd string
		if json.Unmarshal(e.value, &cmd) == nil {
			p.Commands[e.key] = cmd
		}
	}

	for _, pattern := range asStrings(raw.Exclude) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			cfg.logger.Warn("skipping bad exclude pattern", "manifest", file, "pattern", pattern, "error", err)
			continue
		}
		p.Exclude = append(p.Exclude, pattern)
	}
	return p, nil
}

func sectionFor(sections []FrameworkSection, fw framework.Moniker) bool {
	if fw.IsUnsupported() {
		return false
	}
	for _, s := range sections {
		if s.Framework.Equal(fw) {
			return true
		}
	}
	return false
}

func decodeCompilationOptions(data json.RawMessage) CompilationOptions {
	var raw rawCompilationOptions
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil {
		return CompilationOptions{}
	}
	platform, _ := ParsePlatform(asString(raw.Platform))
	return CompilationOptions{
		AllowUnsafe:      asBool(raw.AllowUnsafe),
		Platform:         platform,
		WarningsAsErrors: asBool(raw.WarningsAsErrors),
	}
}

// decodeDependencies accepts the array form [{"A": {...}}, {"B": {...}}] and the
// object form {"A": {...}, "B": {...}}. Each value is {"version": "<range>"} or a
// bare range string.
func decodeDependencies(file, field string, data json.RawMessage) ([]Dependency, error) {
	var groups [][]entry
	var elements []json.RawMessage
	if json.Unmarshal(data, &elements) == nil {
		for _, el := range elements {
			if entries, ok := objectEntries(el); ok {
				groups = append(groups, entries)
			}
		}
	} else if entries, ok := objectEntries(data); ok {
		groups = append(groups, entries)
	}

	deps := []Dependency{}
	seen := make(map[string]bool)
	for _, entries := range groups {
		for _, e := range entries {
			if e.key == "" {
				return nil, &InvalidManifestError{Path: file, Field: field, Reason: "Unable to resolve dependency ''."}
			}
			folded := strings.ToLower(e.key)
			if seen[folded] {
				return nil, &InvalidManifestError{Path: file, Field: field, Key: e.key, Reason: fmt.Sprintf("duplicate dependency %q", e.key)}
			}
			seen[folded] = true
			deps = append(deps, Dependency{Name: e.key, Version: dependencyRange(e.value)})
		}
	}
	return deps, nil
}

// dependencyRange returns nil for a missing or unparseable version.
func dependencyRange(value json.RawMessage) *semver.Range {
	text := asString(value)
	if text == "" {
		var props struct {
			Version json.RawMessage `json:"version"`
		}
		if json.Unmarshal(value, &props) == nil {
			text = asString(props.Version)
		}
	}
	if text == "" {
		return nil
	}
	r, err := semver.ParseRange(text)
	if err != nil {
		return nil
	}
	return r
}

type entry struct {
	key   string
	value json.RawMessage
}

// objectEntries returns the members of a JSON object in document order.
func objectEntries(data json.RawMessage) ([]entry, bool) {
	if len(data) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}
	var out []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		out = append(out, entry{key: key, value: value})
	}
	return out, true
}

func asString(data json.RawMessage) string {
	var s string
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

func asBool(data json.RawMessage) bool {
	var b bool
	if len(data) == 0 || json.Unmarshal(data, &b) != nil {
		return false
	}
	return b
}

// asStrings accepts a string array (non-string members skipped) or a single string.
// The result is never nil.
func asStrings(data json.RawMessage) []string {
	out := []string{}
	if s := asString(data); s != "" {
		return append(out, s)
	}
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil {
		return out
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}
