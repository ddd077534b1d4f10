package graph

import "github.com/mtllr/md-planning/internal/normalize"

// RootID keys the synthetic root of every project graph. Entry names are
// never empty, so it cannot collide with a task.
const RootID = ""

// Node is a task, a milestone or the project root.
type Node struct {
	ID        string
	Index     int // declaration index, -1 for the root
	Duration  float64
	Lag       float64
	Milestone bool
	Record    normalize.Record // nil for the root
}

// IsRoot reports whether n is the synthetic project root.
func (n *Node) IsRoot() bool { return n.ID == RootID }

// Graph is the dependency network of one project.
type Graph struct {
	Project string
	Nodes   map[string]*Node
	Adj     map[string][]string // node -> successors, in declaration order
	RevAdj  map[string][]string // node -> predecessors, as declared
	Roots   []string            // entries without predecessors
	Leaves  []string            // entries nothing depends on

	topo []string
}
