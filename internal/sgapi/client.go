// Package sgapi is a small client for the StorageGRID administrative REST API.
package sgapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

const defaultTimeout = 60 * time.Second

// ErrNoCredentials is returned when neither a token nor a username/password
// pair was configured.
var ErrNoCredentials = errors.New("no credentials: set auth_token or username and password")

// Collaborator is the subset of the client used by resource handlers.
type Collaborator interface {
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	Post(ctx context.Context, path string, body any) (*Response, error)
	Put(ctx context.Context, path string, body any) (*Response, error)
	Delete(ctx context.Context, path string, body any) (*Response, error)
}

// Config holds the connection settings of a Client.
type Config struct {
	APIURL        string
	AuthToken     string
	Username      string
	Password      string
	TenantID      string
	ValidateCerts bool
	Timeout       time.Duration

	// Transport overrides the HTTP transport; used by tests.
	Transport http.RoundTripper
}

// Client talks JSON to a grid or tenant management endpoint.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	log   *logger.Logger
}

var _ Collaborator = (*Client)(nil)

// New builds a client. It does not contact the grid; call Login when only
// username and password are configured.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		return nil, fmt.Errorf("api_url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api_url: %w", err)
	}
	if base.Scheme != "https" && base.Scheme != "http" {
		return nil, fmt.Errorf("api_url %q must use http or https", raw)
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.ValidateCerts {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via validate_certs
		}
		transport = t
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		base:  base,
		token: cfg.AuthToken,
		http:  &http.Client{Transport: transport, Timeout: timeout},
		log:   log,
	}, nil
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request. body may be nil.
func (c *Client) Delete(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := c.base.ResolveReference(ref)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.WithFields(map[string]any{"method": method, "path": path}).Debug("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gridctlerrors.NewAPIError(method, path, resp.StatusCode, raw)
	}

	return decodeEnvelope(resp.StatusCode, raw, method, path)
}
