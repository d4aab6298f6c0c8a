// Package proxysettings manages the admin and storage proxies. The two are
// separate grid settings that reconcile independently.
package proxysettings

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

const (
	adminPath   = "api/v4/private/admin-proxy"
	storagePath = "api/v4/private/storage-proxy"
)

var adminFields = []string{"hostname", "hostPort", "caBundle", "enable", "username", "password"}

// The password is write-only.
var schema = reconcile.Schema{"password": reconcile.FieldIgnored}

// Handler reconciles the proxy_settings singleton.
type Handler struct {
	client sgapi.Collaborator
	log    *logger.Logger
}

var _ resource.Handler = (*Handler)(nil)

// New creates the handler.
func New(client sgapi.Collaborator, log *logger.Logger) *Handler {
	return &Handler{client: client, log: log}
}

// Metadata implements resource.Handler.
func (h *Handler) Metadata() resource.Metadata {
	return resource.Metadata{
		Type:        config.TypeProxySettings,
		Description: "Admin and storage proxy settings",
	}
}

func desiredState(spec *config.ProxySettingsSpec) reconcile.State {
	return resource.NewState().
		Set("hostname", spec.HostName).
		Set("hostPort", spec.HostPort).
		Set("caBundle", spec.CABundle).
		Set("enable", spec.Enable).
		Set("username", spec.Username).
		Set("password", spec.Password).
		Set("proxy", spec.Proxy).
		State()
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.ProxySettings
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("proxy_settings configuration is required"))
	}

	admin, err := h.read(ctx, adminPath)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	storage, err := h.read(ctx, storagePath)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	current := reconcile.State{}
	for _, f := range adminFields {
		if v, ok := admin[f]; ok {
			current[f] = v
		}
	}
	if v, ok := storage["proxy"]; ok {
		current["proxy"] = v
	}

	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desiredState(spec),
		Schema:   schema,
		Noun:     "proxy settings",
	})
}

func (h *Handler) read(ctx context.Context, path string) (reconcile.State, error) {
	resp, err := h.client.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return resource.DecodeState(resp)
}

// Apply implements resource.Handler.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, err := resource.SnapshotOf(evalResult)
	if err != nil {
		return nil, err
	}
	changes := evalResult.Decision.ChangeSet

	if _, ok := changes["proxy"]; ok {
		if _, err := h.client.Put(ctx, storagePath, map[string]any{"proxy": snap.Desired["proxy"]}); err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
	}

	adminChanged := false
	for _, f := range adminFields {
		if _, ok := changes[f]; ok {
			adminChanged = true
			break
		}
	}
	if adminChanged {
		admin := reconcile.State{}
		for _, f := range adminFields {
			if v, ok := snap.Desired[f]; ok {
				admin[f] = v
			}
		}
		if _, err := h.client.Put(ctx, adminPath, map[string]any(admin)); err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
	}

	message := "proxy settings updated successfully"
	h.log.WithFields(map[string]any{"resource": res.ID, "fields": changes.Keys()}).Info(message)
	return resource.Applied(evalResult, message), nil
}
