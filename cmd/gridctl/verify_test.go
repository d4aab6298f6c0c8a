package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
)

func verifyFor(t *testing.T, doc string, jsonOutput bool) (verifyOptions, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	return verifyOptions{
		ConfigPath: writeDocument(t, doc),
		JSON:       jsonOutput,
		Source:     config.NewSource(),
		Out:        out,
	}, out
}

func exitCode(t *testing.T, err error) int {
	t.Helper()

	if err == nil {
		return 0
	}
	var exit *exitError
	require.True(t, errors.As(err, &exit), "unexpected error %v", err)
	return exit.code
}

func TestRunVerifySatisfied(t *testing.T) {
	transport := mockGrid(t, []string{"s3.example.com"})

	opts, out := verifyFor(t, testDocument, false)
	require.Equal(t, 0, exitCode(t, runVerify(context.Background(), opts)))
	require.Contains(t, out.String(), "All resources satisfied")
	require.Zero(t, calls(transport, http.MethodPut, domainNamesPath))
}

func TestRunVerifyDriftExitsWithOne(t *testing.T) {
	transport := mockGrid(t, []string{"old.example.com"})

	opts, out := verifyFor(t, testDocument, true)
	require.Equal(t, 1, exitCode(t, runVerify(context.Background(), opts)))
	require.Zero(t, calls(transport, http.MethodPut, domainNamesPath))

	var decoded struct {
		Summary struct {
			TotalResources int `json:"total_resources"`
			Drifted        int `json:"drifted"`
		} `json:"summary"`
		Results []struct {
			ResourceID string `json:"resource_id"`
			Status     string `json:"status"`
			Details    string `json:"details"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, 1, decoded.Summary.TotalResources)
	require.Equal(t, 1, decoded.Summary.Drifted)
	require.Equal(t, "s3_domains", decoded.Results[0].ResourceID)
	require.Equal(t, "drifted", decoded.Results[0].Status)
	require.Contains(t, decoded.Results[0].Details, "s3.example.com")
}

func TestRunVerifyConfigurationErrorExitsWithTwo(t *testing.T) {
	mockGrid(t, nil)

	opts, _ := verifyFor(t, "version: 1.0\nname: lab\nresources: []\n", false)
	require.Equal(t, 2, exitCode(t, runVerify(context.Background(), opts)))
}

func TestRunVerifyUnreadableStateIsUnknown(t *testing.T) {
	transport := mockGrid(t, nil)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(domainNamesPath),
		func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") })

	opts, out := verifyFor(t, testDocument, false)
	require.Equal(t, 1, exitCode(t, runVerify(context.Background(), opts)))
	require.Contains(t, out.String(), "unknown")
	require.Contains(t, out.String(), "Changes needed")
}

func TestVerifyCommandMissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"verify", "does-not-exist.yaml"})

	require.Equal(t, 2, exitCode(t, root.Execute()))
}
