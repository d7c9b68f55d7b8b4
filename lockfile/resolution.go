package lockfile

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/graph"
)

// FromGraphs creates a lock file from resolved graphs, one target per graph
// framework. The root library of each graph is the project being locked and is not
// recorded.
func FromGraphs(graphs ...*graph.Graph) *Lockfile {
	lf := New()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		lf.AddGraph(g)
	}
	return lf
}

// AddGraph records g under its framework, replacing any earlier target for it.
func (l *Lockfile) AddGraph(g *graph.Graph) {
	target := make(map[string]Entry, len(g.Nodes))
	for _, key := range g.Order {
		if key == g.Root {
			continue
		}
		node := g.Nodes[key]
		libKey := LibraryKey(key.Name, key.Version)

		entry := Entry{Type: node.Type().String()}
		for _, dep := range node.Dependencies {
			if entry.Dependencies == nil {
				entry.Dependencies = make(map[string]string)
			}
			entry.Dependencies[dep.Name] = g.Nodes[dep].Requested[key]
		}

		lib := Library{Type: node.Type().String()}
		if node.Library != nil {
			lib.Path = node.Library.Path
			for _, a := range node.Library.Assemblies {
				entry.Assemblies = append(entry.Assemblies, relativeTo(lib.Path, a.Path))
			}
			sort.Strings(entry.Assemblies)
		}

		target[libKey] = entry
		l.Libraries[libKey] = lib
	}
	l.Targets[g.Framework.String()] = target
}

func relativeTo(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Diff describes what changed between two lock files.
type Diff struct {
	// Added contains "target|name/version" entries only in the new lock file.
	Added []string

	// Removed contains "target|name/version" entries only in the old lock file.
	Removed []string

	// Changed contains entries present in both whose recorded data differs.
	Changed []string
}

// IsEmpty returns true if there are no differences.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare compares two lock files entry by entry.
func Compare(old, new *Lockfile) *Diff {
	diff := &Diff{}
	oldEntries := flatten(old)
	newEntries := flatten(new)

	for id, entry := range newEntries {
		prev, exists := oldEntries[id]
		switch {
		case !exists:
			diff.Added = append(diff.Added, id)
		case !sameEntry(prev, entry):
			diff.Changed = append(diff.Changed, id)
		}
	}
	for id := range oldEntries {
		if _, exists := newEntries[id]; !exists {
			diff.Removed = append(diff.Removed, id)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}

func flatten(l *Lockfile) map[string]Entry {
	out := make(map[string]Entry)
	if l == nil {
		return out
	}
	for target, entries := range l.Targets {
		for key, entry := range entries {
			out[target+"|"+key] = entry
		}
	}
	return out
}

func sameEntry(a, b Entry) bool {
	if a.Type != b.Type || len(a.Dependencies) != len(b.Dependencies) || len(a.Assemblies) != len(b.Assemblies) {
		return false
	}
	for name, r := range a.Dependencies {
		if other, ok := b.Dependencies[name]; !ok || other != r {
			return false
		}
	}
	for i := range a.Assemblies {
		if a.Assemblies[i] != b.Assemblies[i] {
			return false
		}
	}
	return true
}
