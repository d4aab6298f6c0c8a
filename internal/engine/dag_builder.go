package engine

import (
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

// BuildDAG constructs the execution graph from depends_on.
func BuildDAG(resources []config.Resource) (*Graph, error) {
	graph := NewGraph()

	for i := range resources {
		if _, err := graph.AddNode(&resources[i]); err != nil {
			return nil, err
		}
	}

	for _, res := range resources {
		for _, dependency := range res.DependsOn {
			if _, ok := graph.Nodes[dependency]; !ok {
				return nil, gridctlerrors.NewValidationError("resources", fmt.Sprintf("resource %q depends on unknown resource %q", res.ID, dependency), nil)
			}
			if err := graph.AddEdge(dependency, res.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := graph.TopologicalSort(); err != nil {
		return nil, err
	}
	return graph, nil
}
