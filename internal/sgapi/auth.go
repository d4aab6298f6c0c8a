package sgapi

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/logger"
)

const authorizePath = "api/v3/authorize"

// Credentials identify a grid or tenant user.
type Credentials struct {
	Username string
	Password string
	// TenantID selects a tenant account; empty means the grid administrator.
	TenantID string
}

type authorizeRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Cookie    bool   `json:"cookie"`
	CSRFToken bool   `json:"csrfToken"`
	AccountID string `json:"accountId,omitempty"`
}

// Authorize exchanges credentials for a bearer token without storing it.
func (c *Client) Authorize(ctx context.Context, creds Credentials) (string, error) {
	if creds.Username == "" || creds.Password == "" {
		return "", ErrNoCredentials
	}

	resp, err := c.Post(ctx, authorizePath, authorizeRequest{
		Username:  creds.Username,
		Password:  creds.Password,
		AccountID: creds.TenantID,
	})
	if err != nil {
		return "", fmt.Errorf("authorize %s: %w", creds.Username, err)
	}

	var token string
	if err := resp.Decode(&token); err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("authorize %s: empty token in response", creds.Username)
	}
	return token, nil
}

// Login authorizes and keeps the token for subsequent requests.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	token, err := c.Authorize(ctx, creds)
	if err != nil {
		return err
	}
	c.token = token
	c.log.WithFields(map[string]any{"username": creds.Username, "tenant_id": creds.TenantID}).Debug("authorized")
	return nil
}

// Connect returns a ready client: it uses cfg.AuthToken when set and logs in
// with the configured username and password otherwise.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	client, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if client.token != "" {
		return client, nil
	}
	if err := client.Login(ctx, Credentials{Username: cfg.Username, Password: cfg.Password, TenantID: cfg.TenantID}); err != nil {
		return nil, err
	}
	return client, nil
}
