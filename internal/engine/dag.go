package engine

import (
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

// Node represents a vertex in the execution DAG.
type Node struct {
	ID         string
	Resource   *config.Resource
	DependsOn  []*Node
	Dependents []*Node
}

// Graph encapsulates the DAG structure and topological levels.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a resource as a vertex in the graph.
func (g *Graph) AddNode(res *config.Resource) (*Node, error) {
	if res == nil {
		return nil, gridctlerrors.NewExecutionError("", fmt.Errorf("resource cannot be nil"))
	}

	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}

	if _, exists := g.Nodes[res.ID]; exists {
		return nil, gridctlerrors.NewValidationError("resources", fmt.Sprintf("duplicate resource id %q", res.ID), nil)
	}

	node := &Node{ID: res.ID, Resource: res}
	g.Nodes[res.ID] = node
	return node, nil
}

// AddEdge records that to depends on from.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return gridctlerrors.NewValidationError("resources", fmt.Sprintf("unknown dependency %q", from), nil)
	}

	target, ok := g.Nodes[to]
	if !ok {
		return gridctlerrors.NewValidationError("resources", fmt.Sprintf("unknown dependency target %q", to), nil)
	}

	source.Dependents = append(source.Dependents, target)
	target.DependsOn = append(target.DependsOn, source)
	return nil
}

// TopologicalSort computes the DAG levels using Kahn's algorithm. Ids within
// a level are sorted so plans are deterministic.
func (g *Graph) TopologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		indegree[id] = len(node.DependsOn)
	}

	var queue []string
	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, append([]string(nil), queue...))

		var next []string
		for _, id := range queue {
			processed++
			for _, dependent := range g.Nodes[id].Dependents {
				indegree[dependent.ID]--
				if indegree[dependent.ID] == 0 {
					next = append(next, dependent.ID)
				}
			}
		}
		queue = next
	}

	if processed != len(g.Nodes) {
		return gridctlerrors.NewValidationError("resources", "cycle detected while sorting graph", nil)
	}

	g.Levels = levels
	return nil
}
