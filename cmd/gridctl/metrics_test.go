package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

func TestMetricsOptionsBuildQuery(t *testing.T) {
	q, err := metricsOptions{}.query("up")
	require.NoError(t, err)
	require.False(t, q.IsRange())

	q, err = metricsOptions{
		Time: "2026-10-01T00:00:00Z",
		End:  "2026-10-01T01:00:00Z",
		Step: time.Minute,
	}.query("up")
	require.NoError(t, err)
	require.True(t, q.IsRange())
	require.Equal(t, time.Hour, q.End.Sub(q.Time))

	_, err = metricsOptions{Step: time.Minute}.query("up")
	require.ErrorIs(t, err, sgapi.ErrIncompleteRange)

	_, err = metricsOptions{Time: "yesterday"}.query("up")
	require.ErrorContains(t, err, "invalid --time")
}

func TestMetricsQueryCommand(t *testing.T) {
	transport := mockGrid(t, nil)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL("api/v4/grid/metric-query"),
		resourcetest.Respond(http.StatusOK, map[string]any{
			"resultType": "vector",
			"result":     []any{map[string]any{"value": []any{1700000000, "1"}}},
		}))

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"metrics", "query", "up",
		"--api-url", resourcetest.APIURL,
		"--auth-token", "test-token",
	})

	require.NoError(t, root.Execute())

	var decoded sgapi.MetricResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "vector", decoded.ResultType)
	require.Equal(t, 1, calls(transport, http.MethodGet, "api/v4/grid/metric-query"))
}
