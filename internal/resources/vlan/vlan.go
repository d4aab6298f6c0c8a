// Package vlan manages VLAN interfaces on admin and gateway nodes.
package vlan

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

const apiPath = "api/v4/private/vlan-interfaces"

var schema = reconcile.Schema{"interfaces": reconcile.FieldUnordered}

// Handler reconciles vlan_interface resources, matched by VLAN id.
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
		Type:        config.TypeVLANInterface,
		Description: "VLAN interfaces",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

func desiredState(spec *config.VLANInterfaceSpec) reconcile.State {
	b := resource.NewState().
		Put("vlanId", spec.VLANID).
		Set("description", spec.Description)
	if len(spec.Interfaces) > 0 {
		ifaces := make([]any, 0, len(spec.Interfaces))
		for _, i := range spec.Interfaces {
			ifaces = append(ifaces, map[string]any{"nodeId": i.NodeID, "interface": i.InterfaceName})
		}
		b.Put("interfaces", ifaces)
	}
	return b.State()
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.VLANInterface
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("vlan_interface configuration is required"))
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	current, err := resource.FindItem(resp, func(item reconcile.State) bool {
		id, ok := item["vlanId"].(float64)
		return ok && int(id) == spec.VLANID
	})
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desiredState(spec),
		Schema:   schema,
		Noun:     fmt.Sprintf("VLAN interface %d", spec.VLANID),
	})
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

	var message string
	switch evalResult.Decision.Action {
	case reconcile.ActionCreate:
		_, err = h.client.Post(ctx, apiPath, snap.Desired)
		message = "VLAN Interface created"
	case reconcile.ActionModify:
		id := resource.StringField(snap.Current, "id")
		body := make(map[string]any, len(snap.Desired)+1)
		for k, v := range snap.Desired {
			body[k] = v
		}
		body["id"] = id
		_, err = h.client.Put(ctx, apiPath+"/"+id, body)
		message = "VLAN Interface updated"
	case reconcile.ActionDelete:
		_, err = h.client.Delete(ctx, apiPath+"/"+resource.StringField(snap.Current, "id"), nil)
		message = "VLAN Interface deleted"
	}
	if err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}

	h.log.WithFields(map[string]any{"resource": res.ID, "action": evalResult.Decision.Action.String()}).Info(message)
	return resource.Applied(evalResult, message), nil
}
