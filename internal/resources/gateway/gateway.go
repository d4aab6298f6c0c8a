// Package gateway manages load balancer endpoints, matched by port.
package gateway

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
	apiPath            = "api/v3/private/gateway-configs"
	defaultServiceType = "s3"
)

// Handler reconciles gateway resources. Only the server configuration
// (service type and certificate) is compared; the endpoint itself is
// created or deleted.
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
		Type:        config.TypeGateway,
		Description: "Load balancer endpoint",
	}
}

type snapshot struct {
	resource.Snapshot
	gatewayID string
}

func flag(b *bool) bool {
	return b == nil || *b
}

func endpointBody(spec *config.GatewaySpec) map[string]any {
	return map[string]any{
		"accountId":   "0",
		"displayName": spec.DisplayName,
		"port":        spec.Port,
		"secure":      flag(spec.Secure),
		"enableIPv4":  flag(spec.EnableIPv4),
		"enableIPv6":  flag(spec.EnableIPv6),
	}
}

func serverConfig(spec *config.GatewaySpec) reconcile.State {
	serviceType := spec.DefaultServiceType
	if serviceType == "" {
		serviceType = defaultServiceType
	}
	state := reconcile.State{"defaultServiceType": serviceType}
	if !flag(spec.Secure) {
		return state
	}

	state["certSource"] = "plaintext"
	certs := resource.NewState().
		Set("serverCertificateEncoded", spec.ServerCertificate).
		Set("caBundleEncoded", spec.CABundle).
		Set("privateKeyEncoded", spec.PrivateKey).
		State()
	if len(certs) > 0 {
		state["plaintextCertData"] = map[string]any(certs)
	}
	return state
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.Gateway
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("gateway configuration is required"))
	}
	lifecycle, err := resource.LifecycleOf(res)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	endpoint, err := resource.FindItem(resp, func(item reconcile.State) bool {
		port, ok := item["port"].(float64)
		return ok && int(port) == spec.Port
	})
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	var current reconcile.State
	var gatewayID string
	if endpoint != nil {
		gatewayID = resource.StringField(endpoint, "id")
		current, err = h.serverConfig(ctx, gatewayID)
		if err != nil {
			return nil, resource.NewStateError(res.ID, err)
		}
	}

	desired := serverConfig(spec)
	if current != nil && lifecycle == reconcile.LifecyclePresent && spec.PrivateKey != "" {
		h.log.WithFields(map[string]any{"resource": res.ID}).
			Warn("private_key cannot be read back; the server configuration is rewritten on every apply")
	}

	result, err := resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desired,
		Noun:     fmt.Sprintf("load balancer endpoint on port %d", spec.Port),
	})
	if err != nil {
		return nil, err
	}
	result.InternalData = snapshot{
		Snapshot:  resource.Snapshot{Current: current, Desired: desired},
		gatewayID: gatewayID,
	}
	return result, nil
}

// serverConfig reads the server configuration of an endpoint, without the
// certificate metadata the grid computes.
func (h *Handler) serverConfig(ctx context.Context, id string) (reconcile.State, error) {
	resp, err := h.client.Get(ctx, apiPath+"/"+id+"/server-config", nil)
	if err != nil {
		return nil, err
	}
	state, err := resource.DecodeState(resp)
	if err != nil {
		return nil, err
	}
	if certs, ok := state["plaintextCertData"].(map[string]any); ok {
		delete(certs, "metadata")
	}
	return state, nil
}

// Apply implements resource.Handler.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, ok := evalResult.InternalData.(snapshot)
	if !ok {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("evaluation carries no gateway snapshot"))
	}

	id := snap.gatewayID
	var message string
	switch evalResult.Decision.Action {
	case reconcile.ActionCreate:
		resp, err := h.client.Post(ctx, apiPath, endpointBody(res.Gateway))
		if err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
		created, err := resource.DecodeState(resp)
		if err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
		id = resource.StringField(created, "id")
		if id == "" {
			return nil, resource.NewExecutionError(res.ID, fmt.Errorf("create response carries no endpoint id"))
		}
		if _, err := h.client.Put(ctx, apiPath+"/"+id+"/server-config", snap.Desired); err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
		message = "Load balancer endpoint created"
	case reconcile.ActionModify:
		if _, err := h.client.Put(ctx, apiPath+"/"+id+"/server-config", snap.Desired); err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
		message = "Load balancer endpoint updated"
	case reconcile.ActionDelete:
		if _, err := h.client.Delete(ctx, apiPath+"/"+id, nil); err != nil {
			return nil, resource.NewExecutionError(res.ID, err)
		}
		message = "Load balancer endpoint deleted"
	}

	h.log.WithFields(map[string]any{"resource": res.ID, "gateway_id": id, "action": evalResult.Decision.Action.String()}).Info(message)
	return resource.Applied(evalResult, message), nil
}
