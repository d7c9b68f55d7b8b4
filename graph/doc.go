// Package graph provides the resolved dependency graph of one project under one
// target framework, and query capabilities over it.
//
// A graph holds at most one node per library name. Edges follow each library's
// declared dependencies to the node chosen for that name. An edge that closes a
// cycle is kept but flagged in Node.Cycles, so the graph without flagged edges is
// acyclic. Requests that lost to an earlier, nearer request for the same name are
// kept in Graph.Conflicts.
//
// # Building a Graph
//
// Graphs are produced by the walker through a Builder:
//
//	b := graph.NewBuilder(fw, "Debug")
//	root := b.AddNode(rootDesc, 0)
//	dep := b.AddNode(depDesc, 1)
//	b.AddEdge(root, dep, "1.2.0", false)
//	g := b.Build()
//
// # Querying the Graph
//
//	// Direct and transitive dependencies
//	deps := g.TransitiveDeps(g.Root)
//
//	// Why is a library at this version?
//	explanation, _ := g.Explain("Newtonsoft.Json")
//
//	// Every assembly a library brings along
//	assemblies := g.AssembliesFor("Microsoft.AspNet.Mvc")
//
// # Output Formats
//
//	jsonBytes, _ := g.ToJSON()
//	dotString := g.ToDOT()
//	textString := g.ToText()
package graph
