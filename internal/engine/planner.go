package engine

import (
	"fmt"
	"strings"
)

// ExecutionPlan contains the ordered execution levels.
type ExecutionPlan struct {
	Levels []ExecutionLevel
}

// ExecutionLevel represents a set of resources that can run in parallel.
type ExecutionLevel struct {
	ResourceIDs []string
}

// GeneratePlan converts a DAG into an execution plan grouped by level.
func GeneratePlan(graph *Graph) (*ExecutionPlan, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	levels := make([]ExecutionLevel, 0, len(graph.Levels))
	for _, ids := range graph.Levels {
		levels = append(levels, ExecutionLevel{ResourceIDs: append([]string(nil), ids...)})
	}

	return &ExecutionPlan{Levels: levels}, nil
}

// ResourceIDs returns every id in plan order.
func (p *ExecutionPlan) ResourceIDs() []string {
	if p == nil {
		return nil
	}
	var ids []string
	for _, level := range p.Levels {
		ids = append(ids, level.ResourceIDs...)
	}
	return ids
}

// String renders a human readable summary of the plan.
func (p *ExecutionPlan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for i, level := range p.Levels {
		fmt.Fprintf(&b, "Level %d (%d resources): %s\n", i, len(level.ResourceIDs), strings.Join(level.ResourceIDs, ", "))
	}
	return b.String()
}
