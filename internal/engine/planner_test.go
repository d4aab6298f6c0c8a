package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
)

func TestGeneratePlan(t *testing.T) {
	t.Parallel()

	graph, err := BuildDAG([]config.Resource{
		res("dns"),
		res("ssh"),
		res("gateway", "dns"),
		res("firewall", "gateway", "ssh"),
	})
	require.NoError(t, err)

	plan, err := GeneratePlan(graph)
	require.NoError(t, err)
	require.NotNil(t, plan)

	require.Len(t, plan.Levels, 3)
	require.Equal(t, []string{"dns", "ssh"}, plan.Levels[0].ResourceIDs)
	require.Equal(t, []string{"gateway"}, plan.Levels[1].ResourceIDs)
	require.Equal(t, []string{"firewall"}, plan.Levels[2].ResourceIDs)
	require.Equal(t, []string{"dns", "ssh", "gateway", "firewall"}, plan.ResourceIDs())
}

func TestGeneratePlan_String(t *testing.T) {
	t.Parallel()

	plan, err := PlanFor(&config.Config{Resources: []config.Resource{res("a"), res("b", "a")}})
	require.NoError(t, err)

	summary := plan.String()
	require.Contains(t, summary, "Level 0 (1 resources): a")
	require.Contains(t, summary, "Level 1 (1 resources): b")
}

func TestGeneratePlan_NilGraph(t *testing.T) {
	t.Parallel()

	_, err := GeneratePlan(nil)
	require.Error(t, err)

	_, err = PlanFor(nil)
	require.Error(t, err)
}
