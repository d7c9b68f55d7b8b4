package graph

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
)

// Key identifies a node. Versions are kept as text so keys are comparable.
type Key struct {
	Name    string
	Version string
}

// KeyOf returns the key of a library identity.
func KeyOf(id library.Identity) Key {
	return Key{Name: id.Name, Version: id.Version.String()}
}

// String returns name@version, or name for an unversioned library.
func (k Key) String() string {
	if k.Version == "" {
		return k.Name
	}
	return k.Name + "@" + k.Version
}

// Graph is a resolved dependency graph.
type Graph struct {
	// Root is the library the walk started from.
	Root Key

	// Framework is the target framework the graph was resolved for.
	Framework framework.Moniker

	// Configuration is the build configuration, e.g. "Debug".
	Configuration string

	// Nodes contains all nodes, keyed by Key.
	Nodes map[Key]*Node

	// Order lists node keys in discovery order (breadth-first from Root).
	Order []Key

	// Conflicts lists requests that lost to a nearer request for the same name.
	Conflicts []Conflict

	byName map[string]Key // lower(name) -> key
}

// Node is one resolved library.
type Node struct {
	Key Key

	// Library is the provider's description. It is shared and must not be modified.
	Library *library.Description

	// Dependencies are the nodes chosen for the library's declared dependencies, in
	// declaration order. Back edges are included.
	Dependencies []Key

	// Cycles is the subset of Dependencies whose edges close a cycle.
	Cycles []Key

	// Dependents are nodes that depend on this one (reverse edges).
	Dependents []Key

	// Requested maps each dependent to the version range it asked for ("*" for any).
	Requested map[Key]string

	// Depth is the distance from the root.
	Depth int

	// IsRoot is true for the root node.
	IsRoot bool

	// Selection explains why this version of the library is in the graph.
	Selection *SelectionInfo
}

// Type returns the kind of provider that served the node.
func (n *Node) Type() library.Type {
	if n.Library == nil {
		return library.Unresolved
	}
	return n.Library.Type
}

// IsCycle reports whether the edge from n to dep closes a cycle.
func (n *Node) IsCycle(dep Key) bool {
	for _, c := range n.Cycles {
		if c == dep {
			return true
		}
	}
	return false
}

// Conflict records a request for a library that was not honoured because the name
// was already fixed by a request nearer the root.
type Conflict struct {
	Name string `json:"name"`

	// Requester is the library that made the losing request.
	Requester Key `json:"requester"`

	// Requested is the losing version range ("*" for any).
	Requested string `json:"requested"`

	// Depth is the depth the losing request would have placed the library at.
	Depth int `json:"depth"`

	// Selected is the node that serves the name.
	Selected Key `json:"selected"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s requested %s@%s, using %s", c.Requester, c.Name, c.Requested, c.Selected)
}

// SelectionInfo explains why a particular version was selected.
type SelectionInfo struct {
	// Strategy is how the version was selected.
	Strategy SelectionStrategy

	// SelectedVersion is the version in the graph.
	SelectedVersion string

	// Candidates are all requests seen for the name.
	Candidates []VersionCandidate

	// DecidingFactor explains what determined the selection.
	DecidingFactor string
}

// SelectionStrategy indicates how a version was selected.
type SelectionStrategy string

const (
	// StrategyRoot indicates the root library (no selection needed).
	StrategyRoot SelectionStrategy = "root"

	// StrategyNearest indicates the request nearest the root won.
	StrategyNearest SelectionStrategy = "nearest-wins"
)

// VersionCandidate is one request for a library.
type VersionCandidate struct {
	// Requested is the version range asked for.
	Requested string

	// RequestedBy is the library that asked.
	RequestedBy Key

	// Depth is where the request would place the library.
	Depth int

	// Selected indicates the request that fixed the node.
	Selected bool

	// RejectionReason explains why this request was not honoured.
	RejectionReason string
}

// Explanation describes why a library is in the graph at its version.
type Explanation struct {
	// Library is the library being explained.
	Library Key

	// Type is the provider kind that served it.
	Type library.Type

	// Selection explains how the version was selected.
	Selection *SelectionInfo

	// DependencyChains shows all paths from the root to the library.
	DependencyChains []DependencyChain

	// RequestSummary summarizes all requests for the library.
	RequestSummary string
}

// DependencyChain is a path of dependencies from the root to a library.
type DependencyChain struct {
	Path []Key

	// Requested is the range asked for at the end of this chain.
	Requested string
}

// String returns a human-readable representation of the chain.
func (c DependencyChain) String() string {
	if len(c.Path) == 0 {
		return ""
	}
	parts := make([]string, len(c.Path))
	for i, k := range c.Path {
		parts[i] = k.String()
	}
	result := strings.Join(parts, " -> ")
	if c.Requested != "" {
		result += fmt.Sprintf(" (requested %s)", c.Requested)
	}
	return result
}

// Stats provides statistics about the graph.
type Stats struct {
	TotalLibraries         int
	DirectDependencies     int
	TransitiveDependencies int
	MaxDepth               int
	Projects               int
	Packages               int
	Unresolved             int
	Cycles                 int
	Conflicts              int
}
