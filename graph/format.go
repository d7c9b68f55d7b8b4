package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/library"
)

const separatorWidth = 60 // Width of separator lines in text output

// JSONGraph is the JSON form of a graph: the root with its dependency tree nested
// beneath it.
type JSONGraph struct {
	Framework     string     `json:"framework"`
	Configuration string     `json:"configuration,omitempty"`
	Root          JSONNode   `json:"root"`
	Conflicts     []Conflict `json:"conflicts,omitempty"`
}

// JSONNode is one library in the JSON tree. A library that appears more than once
// is expanded only at its first occurrence.
type JSONNode struct {
	Key          string     `json:"key"`
	Name         string     `json:"name,omitempty"`
	Version      string     `json:"version,omitempty"`
	Type         string     `json:"type,omitempty"`
	Dependencies []JSONNode `json:"dependencies,omitempty"`
	Cycles       []string   `json:"cycles,omitempty"`
	Unexpanded   bool       `json:"unexpanded,omitempty"`
}

// ToJSON outputs the graph as an indented JSON tree.
func (g *Graph) ToJSON() ([]byte, error) {
	out := JSONGraph{
		Framework:     g.Framework.ShortName(),
		Configuration: g.Configuration,
		Conflicts:     g.Conflicts,
	}
	if root := g.Nodes[g.Root]; root != nil {
		visited := map[Key]bool{g.Root: true}
		out.Root = g.jsonNode(root, visited)
	}
	return json.MarshalIndent(out, "", "  ")
}

func (g *Graph) jsonNode(node *Node, visited map[Key]bool) JSONNode {
	jn := JSONNode{
		Key:     node.Key.String(),
		Name:    node.Key.Name,
		Version: node.Key.Version,
		Type:    node.Type().String(),
	}
	for _, dep := range node.Dependencies {
		if node.IsCycle(dep) {
			jn.Cycles = append(jn.Cycles, dep.String())
			continue
		}
		if visited[dep] {
			jn.Dependencies = append(jn.Dependencies, JSONNode{Key: dep.String(), Unexpanded: true})
			continue
		}
		visited[dep] = true
		if child := g.Nodes[dep]; child != nil {
			jn.Dependencies = append(jn.Dependencies, g.jsonNode(child, visited))
		}
	}
	return jn
}

// ToDOT outputs the graph in Graphviz DOT format. Unresolved libraries and edges
// that close a cycle are drawn dashed.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box];\n\n")

	for _, key := range g.Order {
		node := g.Nodes[key]
		label := fmt.Sprintf("%s\\n%s", key.Name, key.Version)
		attrs := fmt.Sprintf(`label="%s"`, label) //nolint:gocritic // DOT format requires this quote style
		switch {
		case node.IsRoot:
			attrs += ", style=bold"
		case node.Type() == library.Unresolved:
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", key.String(), attrs)
	}

	buf.WriteString("\n")

	for _, key := range g.Order {
		node := g.Nodes[key]
		for _, dep := range node.Dependencies {
			if node.IsCycle(dep) {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", key.String(), dep.String())
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", key.String(), dep.String())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ToText outputs a human-readable text representation of the graph.
func (g *Graph) ToText() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Dependency Graph (root: %s, framework: %s)\n", g.Root.String(), g.Framework.ShortName())
	buf.WriteString(strings.Repeat("=", separatorWidth) + "\n\n")

	stats := g.Stats()
	fmt.Fprintf(&buf, "Total libraries: %d\n", stats.TotalLibraries)
	fmt.Fprintf(&buf, "Direct dependencies: %d\n", stats.DirectDependencies)
	fmt.Fprintf(&buf, "Transitive dependencies: %d\n", stats.TransitiveDependencies)
	fmt.Fprintf(&buf, "Max depth: %d\n", stats.MaxDepth)
	if stats.Unresolved > 0 {
		fmt.Fprintf(&buf, "Unresolved: %d\n", stats.Unresolved)
	}
	if stats.Conflicts > 0 {
		fmt.Fprintf(&buf, "Conflicts: %d\n", stats.Conflicts)
	}
	buf.WriteString("\n")

	buf.WriteString("Dependency Tree:\n")
	buf.WriteString(g.Root.String() + "\n")
	if root := g.Nodes[g.Root]; root != nil {
		visited := map[Key]bool{g.Root: true}
		for i, dep := range root.Dependencies {
			g.printTree(&buf, dep, "", i == len(root.Dependencies)-1, root.IsCycle(dep), visited)
		}
	}

	return buf.String()
}

func (g *Graph) printTree(buf *bytes.Buffer, key Key, prefix string, isLast, cycle bool, visited map[Key]bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	buf.WriteString(prefix + connector + key.String())

	node := g.Nodes[key]
	if node != nil && node.Type() == library.Unresolved {
		buf.WriteString(" (unresolved)")
	}

	if cycle || visited[key] {
		buf.WriteString(" (cycle)\n")
		return
	}
	buf.WriteString("\n")

	visited[key] = true
	defer func() { visited[key] = false }()

	if node == nil {
		return
	}

	childPrefix := prefix + "│   "
	if isLast {
		childPrefix = prefix + "    "
	}
	for i, dep := range node.Dependencies {
		g.printTree(buf, dep, childPrefix, i == len(node.Dependencies)-1, node.IsCycle(dep), visited)
	}
}

// ToExplainText outputs a human-readable explanation for a specific library.
func (g *Graph) ToExplainText(name string) (string, error) {
	explanation, err := g.Explain(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Explanation for: %s (%s)\n", explanation.Library.String(), explanation.Type)
	buf.WriteString(strings.Repeat("=", separatorWidth) + "\n\n")

	if explanation.Selection != nil {
		buf.WriteString("Version Selection:\n")
		fmt.Fprintf(&buf, "  Selected version: %s\n", explanation.Selection.SelectedVersion)
		fmt.Fprintf(&buf, "  Strategy: %s\n", explanation.Selection.Strategy)
		fmt.Fprintf(&buf, "  Deciding factor: %s\n", explanation.Selection.DecidingFactor)

		if len(explanation.Selection.Candidates) > 0 {
			buf.WriteString("\n  Requests:\n")
			for _, c := range explanation.Selection.Candidates {
				status := "  "
				if c.Selected {
					status = "✓ "
				}
				fmt.Fprintf(&buf, "    %s%s - requested by: %s (depth %d)\n", status, c.Requested, c.RequestedBy, c.Depth)
				if !c.Selected && c.RejectionReason != "" {
					fmt.Fprintf(&buf, "      Reason not selected: %s\n", c.RejectionReason)
				}
			}
		}
	}

	if len(explanation.DependencyChains) > 0 {
		buf.WriteString("\nDependency Chains (paths from root):\n")
		for i, chain := range explanation.DependencyChains {
			fmt.Fprintf(&buf, "  %d. %s\n", i+1, chain.String())
		}
	}

	return buf.String(), nil
}

// LibraryInfo is a library in the flat list output.
type LibraryInfo struct {
	Name       string   `json:"name"`
	Version    string   `json:"version,omitempty"`
	Type       string   `json:"type"`
	Path       string   `json:"path,omitempty"`
	RequiredBy []string `json:"required_by,omitempty"`
}

// ToLibraryList outputs every library except the root as a flat list sorted by name.
func (g *Graph) ToLibraryList() []LibraryInfo {
	libs := make([]LibraryInfo, 0, len(g.Nodes))

	for key, node := range g.Nodes {
		if key == g.Root {
			continue
		}

		requiredBy := make([]string, len(node.Dependents))
		for i, dep := range node.Dependents {
			requiredBy[i] = dep.String()
		}

		info := LibraryInfo{
			Name:       key.Name,
			Version:    key.Version,
			Type:       node.Type().String(),
			RequiredBy: requiredBy,
		}
		if node.Library != nil {
			info.Path = node.Library.Path
		}
		libs = append(libs, info)
	}

	sort.Slice(libs, func(i, j int) bool {
		return libs[i].Name < libs[j].Name
	})

	return libs
}
