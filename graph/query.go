package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/library"
)

// Get returns the node for a key, or nil if not found.
func (g *Graph) Get(key Key) *Node {
	return g.Nodes[key]
}

// GetByName returns the node for a library name, matched case-insensitively.
// Returns nil if not found.
func (g *Graph) GetByName(name string) *Node {
	if g.byName != nil {
		if key, ok := g.byName[strings.ToLower(name)]; ok {
			return g.Nodes[key]
		}
		return nil
	}
	for key, node := range g.Nodes {
		if strings.EqualFold(key.Name, name) {
			return node
		}
	}
	return nil
}

// Contains returns true if the graph contains the given key.
func (g *Graph) Contains(key Key) bool {
	_, ok := g.Nodes[key]
	return ok
}

// ContainsName returns true if the graph contains a library with the given name.
func (g *Graph) ContainsName(name string) bool {
	return g.GetByName(name) != nil
}

// Names returns every library name in discovery order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.Order))
	for i, k := range g.Order {
		names[i] = k.Name
	}
	return names
}

// DirectDeps returns the direct dependencies of a library.
func (g *Graph) DirectDeps(key Key) []Key {
	if node := g.Nodes[key]; node != nil {
		return node.Dependencies
	}
	return nil
}

// DirectDependents returns libraries that directly depend on the given one.
func (g *Graph) DirectDependents(key Key) []Key {
	if node := g.Nodes[key]; node != nil {
		return node.Dependents
	}
	return nil
}

// TransitiveDeps returns all transitive dependencies of a library in breadth-first
// order. The library itself is not included, even when a cycle leads back to it.
func (g *Graph) TransitiveDeps(key Key) []Key {
	return g.bfs(key, func(n *Node) []Key { return n.Dependencies })
}

// TransitiveDependents returns all libraries that transitively depend on the given
// one, closest first.
func (g *Graph) TransitiveDependents(key Key) []Key {
	return g.bfs(key, func(n *Node) []Key { return n.Dependents })
}

func (g *Graph) bfs(start Key, next func(*Node) []Key) []Key {
	result := make([]Key, 0)
	visited := map[Key]bool{start: true}
	queue := []Key{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.Nodes[current]
		if node == nil {
			continue
		}
		for _, k := range next(node) {
			if !visited[k] {
				visited[k] = true
				result = append(result, k)
				queue = append(queue, k)
			}
		}
	}
	return result
}

// Path finds the shortest dependency path from one library to another.
// Returns nil if no path exists.
func (g *Graph) Path(from, to Key) []Key {
	if from == to {
		return []Key{from}
	}

	type queueItem struct {
		key  Key
		path []Key
	}

	visited := map[Key]bool{from: true}
	queue := []queueItem{{key: from, path: []Key{from}}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.Nodes[current.key]
		if node == nil {
			continue
		}
		for _, dep := range node.Dependencies {
			if dep == to {
				return append(current.path, dep)
			}
			if !visited[dep] {
				visited[dep] = true
				newPath := make([]Key, len(current.path)+1)
				copy(newPath, current.path)
				newPath[len(current.path)] = dep
				queue = append(queue, queueItem{key: dep, path: newPath})
			}
		}
	}
	return nil
}

// AllPaths finds all acyclic dependency paths from one library to another.
// This can be expensive for large graphs with many paths.
func (g *Graph) AllPaths(from, to Key) [][]Key {
	var result [][]Key
	g.findAllPaths(from, to, []Key{from}, make(map[Key]bool), &result)
	return result
}

func (g *Graph) findAllPaths(current, target Key, path []Key, visited map[Key]bool, result *[][]Key) {
	if current == target {
		pathCopy := make([]Key, len(path))
		copy(pathCopy, path)
		*result = append(*result, pathCopy)
		return
	}

	visited[current] = true
	defer func() { visited[current] = false }()

	node := g.Nodes[current]
	if node == nil {
		return
	}
	for _, dep := range node.Dependencies {
		if !visited[dep] {
			g.findAllPaths(dep, target, append(path, dep), visited, result)
		}
	}
}

// Explain returns why a library is in the graph at its version.
func (g *Graph) Explain(name string) (*Explanation, error) {
	node := g.GetByName(name)
	if node == nil {
		return nil, fmt.Errorf("library %q not found in graph", name)
	}

	explanation := &Explanation{
		Library:   node.Key,
		Type:      node.Type(),
		Selection: node.Selection,
	}

	for _, path := range g.AllPaths(g.Root, node.Key) {
		chain := DependencyChain{Path: path}
		if len(path) >= 2 {
			chain.Requested = node.Requested[path[len(path)-2]]
		}
		explanation.DependencyChains = append(explanation.DependencyChains, chain)
	}
	explanation.RequestSummary = g.buildRequestSummary(node)

	return explanation, nil
}

func (g *Graph) buildRequestSummary(node *Node) string {
	if node.Selection == nil || len(node.Selection.Candidates) == 0 {
		return fmt.Sprintf("%s is at version %s", node.Key.Name, node.Key.Version)
	}

	parts := make([]string, 0, len(node.Selection.Candidates))
	for _, c := range node.Selection.Candidates {
		part := fmt.Sprintf("  %s requested by %s at depth %d", c.Requested, c.RequestedBy, c.Depth)
		if c.Selected {
			part += " [SELECTED]"
		}
		parts = append(parts, part)
	}

	return fmt.Sprintf("%s version selection:\n%s\nStrategy: %s (%s)",
		node.Key.Name,
		strings.Join(parts, "\n"),
		node.Selection.Strategy,
		node.Selection.DecidingFactor,
	)
}

// WhyIncluded returns all dependency chains that bring a library into the graph.
func (g *Graph) WhyIncluded(name string) ([]DependencyChain, error) {
	node := g.GetByName(name)
	if node == nil {
		return nil, fmt.Errorf("library %q not found in graph", name)
	}

	paths := g.AllPaths(g.Root, node.Key)
	chains := make([]DependencyChain, len(paths))
	for i, path := range paths {
		chains[i] = DependencyChain{Path: path}
	}
	return chains, nil
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() Stats {
	stats := Stats{
		TotalLibraries: len(g.Nodes),
		Conflicts:      len(g.Conflicts),
	}

	if root := g.Nodes[g.Root]; root != nil {
		stats.DirectDependencies = len(root.Dependencies) - len(root.Cycles)
	}
	stats.TransitiveDependencies = stats.TotalLibraries - stats.DirectDependencies - 1
	if stats.TransitiveDependencies < 0 {
		stats.TransitiveDependencies = 0
	}

	for _, node := range g.Nodes {
		if node.Depth > stats.MaxDepth {
			stats.MaxDepth = node.Depth
		}
		stats.Cycles += len(node.Cycles)
		switch node.Type() {
		case library.Project:
			stats.Projects++
		case library.Package:
			stats.Packages++
		default:
			stats.Unresolved++
		}
	}
	return stats
}

// Leaves returns all libraries without dependencies, sorted by key.
func (g *Graph) Leaves() []Key {
	var leaves []Key
	for key, node := range g.Nodes {
		if len(node.Dependencies) == 0 {
			leaves = append(leaves, key)
		}
	}
	sortKeys(leaves)
	return leaves
}

// Unresolved returns the libraries no provider could serve, in discovery order.
func (g *Graph) Unresolved() []Key {
	var out []Key
	for _, key := range g.Order {
		if g.Nodes[key].Type() == library.Unresolved {
			out = append(out, key)
		}
	}
	return out
}

// HasCycles reports whether any declared dependency closes a cycle.
func (g *Graph) HasCycles() bool {
	for _, node := range g.Nodes {
		if len(node.Cycles) > 0 {
			return true
		}
	}
	return false
}

// IsAcyclic reports whether the graph is acyclic once flagged back edges are
// ignored. Graphs built by the walker always are.
func (g *Graph) IsAcyclic() bool {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[Key]int, len(g.Nodes))

	var visit func(key Key) bool
	visit = func(key Key) bool {
		state[key] = inProgress
		node := g.Nodes[key]
		for _, dep := range node.Dependencies {
			if node.IsCycle(dep) || g.Nodes[dep] == nil {
				continue
			}
			switch state[dep] {
			case inProgress:
				return false
			case unvisited:
				if !visit(dep) {
					return false
				}
			}
		}
		state[key] = done
		return true
	}

	for _, key := range g.Order {
		if state[key] == unvisited && !visit(key) {
			return false
		}
	}
	return true
}

// FindCycles returns one cycle per flagged back edge, as the path from the edge's
// target back to its source followed by the target again.
func (g *Graph) FindCycles() [][]Key {
	var cycles [][]Key
	for _, key := range g.Order {
		node := g.Nodes[key]
		for _, target := range node.Cycles {
			path := g.Path(target, key)
			if path == nil {
				continue
			}
			if target != key {
				path = append(path, target)
			} else {
				path = []Key{key, key}
			}
			cycles = append(cycles, path)
		}
	}
	return cycles
}

// AssembliesFor returns the assemblies contributed by a library and everything it
// depends on, in breadth-first order without duplicates.
func (g *Graph) AssembliesFor(name string) []library.Assembly {
	node := g.GetByName(name)
	if node == nil {
		return nil
	}

	var out []library.Assembly
	seen := make(map[string]bool)
	add := func(n *Node) {
		if n == nil || n.Library == nil {
			return
		}
		for _, a := range n.Library.Assemblies {
			if seen[a.Path] {
				continue
			}
			seen[a.Path] = true
			out = append(out, a)
		}
	}

	add(node)
	for _, dep := range g.TransitiveDeps(node.Key) {
		add(g.Nodes[dep])
	}
	return out
}

// AssemblyLookup maps every library name to AssembliesFor(name).
func (g *Graph) AssemblyLookup() map[string][]library.Assembly {
	out := make(map[string][]library.Assembly, len(g.Nodes))
	for _, key := range g.Order {
		out[key.Name] = g.AssembliesFor(key.Name)
	}
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Version < keys[j].Version
	})
}
