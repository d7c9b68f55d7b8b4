package graph

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/library"
)

// Builder constructs a Graph during a walk. The first node added is the root.
// A Builder is not safe for concurrent use.
type Builder struct {
	g *Graph

	// requests holds every request per name, in arrival order.
	requests map[string][]VersionCandidate
}

// NewBuilder creates a builder for a graph resolved for fw and configuration.
func NewBuilder(fw framework.Moniker, configuration string) *Builder {
	return &Builder{
		g: &Graph{
			Framework:     fw,
			Configuration: configuration,
			Nodes:         make(map[Key]*Node),
			byName:        make(map[string]Key),
		},
		requests: make(map[string][]VersionCandidate),
	}
}

// AddNode adds the node for desc at depth. If a node with the same name already
// exists it is kept and its key returned.
func (b *Builder) AddNode(desc *library.Description, depth int) Key {
	name := strings.ToLower(desc.Identity.Name)
	if key, ok := b.g.byName[name]; ok {
		return key
	}

	key := KeyOf(desc.Identity)
	node := &Node{
		Key:          key,
		Library:      desc,
		Dependencies: make([]Key, 0, len(desc.Dependencies)),
		Dependents:   make([]Key, 0),
		Requested:    make(map[Key]string),
		Depth:        depth,
		IsRoot:       len(b.g.Nodes) == 0,
	}
	if node.IsRoot {
		b.g.Root = key
	}
	b.g.Nodes[key] = node
	b.g.Order = append(b.g.Order, key)
	b.g.byName[name] = key
	return key
}

// Lookup returns the key of the node fixed for name.
func (b *Builder) Lookup(name string) (Key, bool) {
	key, ok := b.g.byName[strings.ToLower(name)]
	return key, ok
}

// AddEdge records that from depends on to and asked for the range requested. cycle
// marks an edge that closes a cycle. The first request for a node is the one that
// selected it; later requests for a different range are recorded as conflicts.
func (b *Builder) AddEdge(from, to Key, requested string, cycle bool) {
	src, dst := b.g.Nodes[from], b.g.Nodes[to]
	if src == nil || dst == nil {
		return
	}
	if requested == "" {
		requested = "*"
	}

	src.Dependencies = append(src.Dependencies, to)
	if cycle {
		src.Cycles = append(src.Cycles, to)
	}
	dst.Dependents = append(dst.Dependents, from)
	dst.Requested[from] = requested

	name := strings.ToLower(to.Name)
	prior := b.requests[name]
	candidate := VersionCandidate{Requested: requested, RequestedBy: from, Depth: src.Depth + 1}

	switch {
	case len(prior) == 0 && !dst.IsRoot:
		candidate.Selected = true
	case requested == b.selectedRange(name, dst):
		candidate.Selected = true
	default:
		selectedDepth := dst.Depth
		if candidate.Depth > selectedDepth {
			candidate.RejectionReason = fmt.Sprintf("farther from root (depth %d > %d)", candidate.Depth, selectedDepth)
		} else {
			candidate.RejectionReason = "same depth, discovered later"
		}
		b.g.Conflicts = append(b.g.Conflicts, Conflict{
			Name:      to.Name,
			Requester: from,
			Requested: requested,
			Depth:     candidate.Depth,
			Selected:  to,
		})
	}
	b.requests[name] = append(prior, candidate)
}

// Reaches reports whether to can be reached from from through edges that are not
// flagged as cycles. The walker uses it to decide whether a new edge closes a cycle.
func (b *Builder) Reaches(from, to Key) bool {
	if from == to {
		return true
	}
	visited := map[Key]bool{from: true}
	stack := []Key{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := b.g.Nodes[current]
		if node == nil {
			continue
		}
		for _, dep := range node.Dependencies {
			if node.IsCycle(dep) || visited[dep] {
				continue
			}
			if dep == to {
				return true
			}
			visited[dep] = true
			stack = append(stack, dep)
		}
	}
	return false
}

// selectedRange returns the range that fixed dst. The root was not requested by
// anyone; it is pinned to its own version.
func (b *Builder) selectedRange(name string, dst *Node) string {
	if dst.IsRoot {
		if dst.Key.Version == "" {
			return "*"
		}
		return dst.Key.Version
	}
	for _, c := range b.requests[name] {
		if c.Selected {
			return c.Requested
		}
	}
	return ""
}

// Build finishes the graph. The builder must not be used afterwards.
func (b *Builder) Build() *Graph {
	for key, node := range b.g.Nodes {
		candidates := b.requests[strings.ToLower(key.Name)]
		info := &SelectionInfo{
			SelectedVersion: key.Version,
			Candidates:      candidates,
		}
		switch {
		case node.IsRoot:
			info.Strategy = StrategyRoot
			info.DecidingFactor = "root library"
		case len(candidates) <= 1:
			info.Strategy = StrategyNearest
			info.DecidingFactor = "only request"
		default:
			info.Strategy = StrategyNearest
			info.DecidingFactor = fmt.Sprintf("nearest request to root (depth %d)", node.Depth)
		}
		node.Selection = info
	}
	return b.g
}
