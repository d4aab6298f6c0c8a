// Package resourcetest holds helpers for testing resource handlers against
// a mocked grid API.
package resourcetest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// APIURL is the base URL of the mocked grid.
const APIURL = "https://grid.example.com"

// URL returns the absolute mock URL for an API path.
func URL(path string) string {
	return APIURL + "/" + path
}

// Recorder wraps a transport and records every non-GET request.
type Recorder struct {
	next http.RoundTripper

	mu        sync.Mutex
	mutations []string
}

// RoundTrip implements http.RoundTripper.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		r.mu.Lock()
		r.mutations = append(r.mutations, req.Method+" "+req.URL.Path)
		r.mu.Unlock()
	}
	return r.next.RoundTrip(req)
}

// Mutations returns the recorded "METHOD /path" entries in order.
func (r *Recorder) Mutations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.mutations...)
}

// Reset forgets recorded mutations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.mutations = nil
	r.mu.Unlock()
}

// NewClient returns a client wired to a fresh mock transport.
func NewClient(t *testing.T) (*sgapi.Client, *httpmock.MockTransport, *Recorder) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	rec := &Recorder{next: transport}
	client, err := sgapi.New(sgapi.Config{APIURL: APIURL, AuthToken: "test-token", Transport: rec}, nil)
	require.NoError(t, err)
	return client, transport, rec
}

// Envelope wraps data the way the grid API does.
func Envelope(data any) map[string]any {
	return map[string]any{
		"responseTime": "2024-01-01T00:00:00.000Z",
		"status":       "success",
		"apiVersion":   "4.0",
		"data":         data,
	}
}

// Respond returns a responder sending data inside an envelope.
func Respond(status int, data any) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(status, Envelope(data))
}

// RespondError returns a responder sending an API error body.
func RespondError(status int, text string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(status, map[string]any{
		"status":  "error",
		"code":    status,
		"message": map[string]any{"text": text, "key": "error"},
	})
}

// Capture returns a responder that stores the decoded request body in dst
// and answers with data.
func Capture(t *testing.T, dst *map[string]any, data any) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, dst))
		}
		return httpmock.NewJsonResponse(http.StatusOK, Envelope(data))
	}
}

// RunContract checks the handler guarantees shared by all resource types:
// stable metadata, and a read-only, repeatable Evaluate.
func RunContract(t *testing.T, h resource.Handler, res config.Resource, rec *Recorder) {
	t.Helper()

	t.Run("Metadata is stable", func(t *testing.T) {
		require.Equal(t, h.Metadata(), h.Metadata())
		require.Equal(t, res.Type, h.Metadata().Type)
	})

	t.Run("Evaluate is read-only and repeatable", func(t *testing.T) {
		rec.Reset()

		first, err1 := h.Evaluate(context.Background(), res)
		second, err2 := h.Evaluate(context.Background(), res)
		require.Equal(t, err1 != nil, err2 != nil)
		require.Empty(t, rec.Mutations(), "Evaluate issued mutating requests")
		if err1 != nil {
			return
		}

		require.Equal(t, first.ResourceID, second.ResourceID)
		require.Equal(t, first.Decision, second.Decision)
		require.Equal(t, first.RequiresAction, second.RequiresAction)
	})

	t.Run("Errors carry the resource id", func(t *testing.T) {
		broken := res
		broken.State = "archived"
		_, err := h.Evaluate(context.Background(), broken)
		require.Error(t, err)

		resErr, ok := resource.AsResourceError(err)
		require.True(t, ok, "error should implement ResourceError")
		require.Equal(t, res.ID, resErr.ResourceID())
	})
}
