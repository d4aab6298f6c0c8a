package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
)

const domainNamesPath = "api/v4/grid/domain-names"

const testDocument = `version: "1.0"
name: lab grid
connection:
  api_url: https://grid.example.com
  auth_token: test-token
resources:
  - id: s3_domains
    type: domain_names
    domain_names:
      - s3.example.com
`

func writeDocument(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// mockGrid installs a mock transport for every client built by the
// commands. The grid reports domains as its current endpoint names.
func mockGrid(t *testing.T, domains []string) *httpmock.MockTransport {
	t.Helper()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, resourcetest.URL("api/v4/grid/config/product-version"),
		resourcetest.Respond(http.StatusOK, map[string]any{"productVersion": "11.9.0.20240101"}))
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(domainNamesPath),
		resourcetest.Respond(http.StatusOK, domains))

	previousTransport, previousOutput := apiTransport, logOutput
	apiTransport, logOutput = transport, io.Discard
	t.Cleanup(func() {
		apiTransport, logOutput = previousTransport, previousOutput
	})
	return transport
}

func calls(transport *httpmock.MockTransport, method, path string) int {
	return transport.GetCallCountInfo()[method+" "+resourcetest.URL(path)]
}
