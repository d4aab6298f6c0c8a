// Package firewall manages the per-node firewall: blocked external ports
// and privileged source addresses. The grid stores them as two objects
// sharing the node id; they are compared as one flat state.
package firewall

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

const (
	blockedPortsPath  = "api/v4/private/firewall-blocked-ports"
	privilegedIPsPath = "api/v4/private/firewall-privileged-ips"
	externalPortsPath = "api/v4/private/firewall-external-ports"
)

var privilegedIPsVersion = sgapi.MustParseVersion("11.9")

var (
	blockedFields    = []string{"udpPorts", "tcpPorts"}
	privilegedFields = []string{"privilegedIps", "gridInternalAccess"}
)

// Handler reconciles firewall resources, matched by node id.
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
		Type:        config.TypeFirewall,
		Description: "Node firewall",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

// snapshot extends resource.Snapshot with the raw grid objects.
type snapshot struct {
	resource.Snapshot
	blocked    reconcile.State
	privileged reconcile.State
}

func desiredState(spec *config.FirewallSpec) reconcile.State {
	return resource.NewState().
		Set("udpPorts", spec.BlockedUDPPorts).
		Set("tcpPorts", spec.BlockedTCPPorts).
		Set("privilegedIps", spec.PrivilegedIPs).
		Set("gridInternalAccess", spec.GridInternalAccess).
		State()
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.Firewall
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("firewall configuration is required"))
	}
	lifecycle, err := resource.LifecycleOf(res)
	if err != nil {
		return nil, err
	}

	if lifecycle == reconcile.LifecyclePresent && spec.DeclaresPrivilegedIPs() {
		version, err := sgapi.ProductVersion(ctx, h.client)
		if err != nil {
			return nil, resource.NewStateError(res.ID, err)
		}
		if err := sgapi.RequireVersion("firewall privileged IPs", privilegedIPsVersion, version); err != nil {
			return nil, resource.NewValidationError(res.ID, err)
		}
	}

	blocked, err := h.find(ctx, blockedPortsPath, spec.NodeID)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	privileged, err := h.find(ctx, privilegedIPsPath, spec.NodeID)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	var current reconcile.State
	if blocked != nil || privileged != nil {
		current = reconcile.State{}
		merge(current, blocked, blockedFields)
		merge(current, privileged, privilegedFields)
	}

	desired := desiredState(spec)
	result, err := resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desired,
		Noun:     fmt.Sprintf("firewall of node %s", spec.NodeID),
	})
	if err != nil {
		return nil, err
	}

	if touches(result.Decision, blockedFields) {
		if err := h.checkExternalPorts(ctx, spec); err != nil {
			return nil, resource.NewValidationError(res.ID, err)
		}
	}

	result.InternalData = snapshot{
		Snapshot:   resource.Snapshot{Current: current, Desired: desired},
		blocked:    blocked,
		privileged: privileged,
	}
	return result, nil
}

// find returns the object with the given id from a firewall list. A list
// endpoint the grid does not serve counts as empty.
func (h *Handler) find(ctx context.Context, path, nodeID string) (reconcile.State, error) {
	resp, err := h.client.Get(ctx, path, nil)
	if err != nil {
		if gridctlerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return resource.FindItem(resp, func(item reconcile.State) bool {
		return resource.StringField(item, "id") == nodeID
	})
}

// checkExternalPorts rejects blocked ports the grid does not expose.
func (h *Handler) checkExternalPorts(ctx context.Context, spec *config.FirewallSpec) error {
	resp, err := h.client.Get(ctx, externalPortsPath, nil)
	if err != nil {
		return err
	}
	var external struct {
		TCP []int `json:"externalTcpPorts"`
		UDP []int `json:"externalUdpPorts"`
	}
	if err := resp.Decode(&external); err != nil {
		return err
	}

	if port, ok := firstMissing(spec.BlockedTCPPorts, external.TCP); ok {
		return fmt.Errorf("TCP port %d is not a valid external port", port)
	}
	if port, ok := firstMissing(spec.BlockedUDPPorts, external.UDP); ok {
		return fmt.Errorf("UDP port %d is not a valid external port", port)
	}
	return nil
}

func firstMissing(ports, allowed []int) (int, bool) {
	set := make(map[int]struct{}, len(allowed))
	for _, p := range allowed {
		set[p] = struct{}{}
	}
	for _, p := range ports {
		if _, ok := set[p]; !ok {
			return p, true
		}
	}
	return 0, false
}

func merge(dst, src reconcile.State, fields []string) {
	for _, f := range fields {
		if v, ok := src[f]; ok {
			dst[f] = v
		}
	}
}

// touches reports whether the decision writes any of fields.
func touches(d reconcile.Decision, fields []string) bool {
	if d.Action == reconcile.ActionCreate {
		return true
	}
	for _, f := range fields {
		if _, ok := d.ChangeSet[f]; ok {
			return true
		}
	}
	return false
}

func part(nodeID string, desired reconcile.State, fields []string) map[string]any {
	body := map[string]any{"id": nodeID}
	merge(body, desired, fields)
	if len(body) == 1 {
		return nil
	}
	return body
}

// Apply implements resource.Handler.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, ok := evalResult.InternalData.(snapshot)
	if !ok {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("evaluation carries no firewall snapshot"))
	}

	nodeID := res.Firewall.NodeID
	decision := evalResult.Decision
	var message string

	switch decision.Action {
	case reconcile.ActionDelete:
		if snap.blocked != nil {
			if _, err := h.client.Delete(ctx, blockedPortsPath+"/"+nodeID, nil); err != nil {
				return nil, resource.NewExecutionError(res.ID, err)
			}
		}
		if snap.privileged != nil {
			if _, err := h.client.Delete(ctx, privilegedIPsPath+"/"+nodeID, nil); err != nil {
				return nil, resource.NewExecutionError(res.ID, err)
			}
		}
		message = "Firewall deleted successfully"

	case reconcile.ActionCreate, reconcile.ActionModify:
		var wrote []string
		if body := part(nodeID, snap.Desired, blockedFields); body != nil && touches(decision, blockedFields) {
			if err := h.write(ctx, blockedPortsPath, nodeID, snap.blocked != nil, body); err != nil {
				return nil, resource.NewExecutionError(res.ID, err)
			}
			wrote = append(wrote, "Blocked ports")
		}
		if body := part(nodeID, snap.Desired, privilegedFields); body != nil && touches(decision, privilegedFields) {
			if err := h.write(ctx, privilegedIPsPath, nodeID, snap.privileged != nil, body); err != nil {
				return nil, resource.NewExecutionError(res.ID, err)
			}
			wrote = append(wrote, "Privileged IPs")
		}

		verb := "updated"
		if decision.Action == reconcile.ActionCreate {
			verb = "created"
		}
		subject := "Firewall"
		if len(wrote) == 1 {
			subject = wrote[0]
		}
		message = subject + " " + verb + " successfully"
	}

	h.log.WithFields(map[string]any{"resource": res.ID, "node": nodeID, "action": decision.Action.String()}).Info(message)
	return resource.Applied(evalResult, message), nil
}

// write updates an existing firewall object or creates it.
func (h *Handler) write(ctx context.Context, path, nodeID string, exists bool, body map[string]any) error {
	if exists {
		_, err := h.client.Put(ctx, path+"/"+nodeID, body)
		return err
	}
	_, err := h.client.Post(ctx, path, body)
	return err
}
