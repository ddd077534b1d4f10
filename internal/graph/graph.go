package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/planerr"
)

// Build constructs the dependency graph of one project from its normalized
// records. Entries without predecessors hang off the synthetic root.
func Build(project string, records []normalize.Record) (*Graph, error) {
	g := &Graph{
		Project: project,
		Nodes:   make(map[string]*Node, len(records)+1),
		Adj:     make(map[string][]string),
		RevAdj:  make(map[string][]string),
	}
	g.Nodes[RootID] = &Node{ID: RootID, Index: -1}

	// Index all entries
	for _, r := range records {
		id := r.ID()
		if _, dup := g.Nodes[id]; dup {
			return nil, planerr.Shape("project %q: duplicate entry %q", project, id)
		}
		g.Nodes[id] = &Node{
			ID:        id,
			Index:     r.Position(),
			Duration:  r.Length(),
			Milestone: r.IsMilestone(),
			Record:    r,
		}
	}

	edgeSet := make(map[[2]string]bool)
	addEdge := func(from, to string) {
		key := [2]string{from, to}
		if edgeSet[key] {
			return
		}
		edgeSet[key] = true
		g.Adj[from] = append(g.Adj[from], to)
		g.RevAdj[to] = append(g.RevAdj[to], from)
	}

	for _, r := range records {
		deps := r.Deps()
		if len(deps) == 0 {
			addEdge(RootID, r.ID())
			g.Roots = append(g.Roots, r.ID())
			continue
		}
		for _, dep := range deps {
			if _, ok := g.Nodes[dep]; !ok || dep == RootID {
				return nil, fmt.Errorf("project %q: %w", project,
					&planerr.RefError{Kind: "dependency", Task: r.ID(), Target: dep})
			}
			addEdge(dep, r.ID())
		}
	}

	// Successor lists follow declaration order so traversals are stable
	for k := range g.Adj {
		g.sortByIndex(g.Adj[k])
	}

	for _, r := range records {
		if len(g.Adj[r.ID()]) == 0 {
			g.Leaves = append(g.Leaves, r.ID())
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, fmt.Errorf("project %q: %w: %s", project, planerr.ErrCycle, strings.Join(cycle, " -> "))
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.topo = order
	return g, nil
}

func (g *Graph) sortByIndex(ids []string) {
	sort.SliceStable(ids, func(a, b int) bool {
		return g.Nodes[ids[a]].Index < g.Nodes[ids[b]].Index
	})
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.ordered() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ordered lists every node id, root first, then by declaration index.
func (g *Graph) ordered() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	g.sortByIndex(ids)
	return ids
}

// topoSort is Kahn's algorithm. Among ready nodes the earliest declared goes
// first.
func (g *Graph) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	var ready []string
	for _, id := range g.ordered() {
		inDegree[id] = len(g.RevAdj[id])
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		grew := false
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
				grew = true
			}
		}
		if grew {
			g.sortByIndex(ready)
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("project %q: %w: %d of %d nodes sorted", g.Project, planerr.ErrCycle, len(order), len(g.Nodes))
	}
	return order, nil
}

// TopoOrder returns the cached topological order, root first. Callers must
// not modify the slice.
func (g *Graph) TopoOrder() []string {
	return g.topo
}

// NodeCount returns the number of entries, excluding the root.
func (g *Graph) NodeCount() int {
	return len(g.Nodes) - 1
}

// Records returns the entries in declaration order.
func (g *Graph) Records() []normalize.Record {
	out := make([]normalize.Record, 0, len(g.Nodes)-1)
	for _, id := range g.ordered() {
		if n := g.Nodes[id]; !n.IsRoot() {
			out = append(out, n.Record)
		}
	}
	return out
}
