// Package untrustednetwork manages which client networks the grid treats as
// untrusted.
package untrustednetwork

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

const (
	apiPath        = "api/v4/grid/untrusted-client-network"
	nodeHealthPath = "api/v4/grid/node-health"

	defaultNode = "trusted"
)

var schema = reconcile.Schema{"untrustedNodes": reconcile.FieldUnordered}

// Handler reconciles the untrusted_client_network singleton.
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
		Type:        config.TypeUntrustedClientNetwork,
		Description: "Untrusted client network nodes",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

type node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// resolveNodes maps node names to ids. Unknown names are an error.
func (h *Handler) resolveNodes(ctx context.Context, res config.Resource, names []string) ([]string, error) {
	resp, err := h.client.Get(ctx, nodeHealthPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	var nodes []node
	if err := resp.Decode(&nodes); err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	byName := make(map[string]string, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n.ID
	}

	ids := make([]string, 0, len(names))
	var unknown []string
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		ids = append(ids, id)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("unknown node name(s): %s", strings.Join(unknown, ", ")))
	}
	return ids, nil
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.UntrustedClientNetwork
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("untrusted_client_network configuration is required"))
	}

	untrusted := []string{}
	switch {
	case spec.UntrustedNodesName != nil:
		ids, err := h.resolveNodes(ctx, res, spec.UntrustedNodesName)
		if err != nil {
			return nil, err
		}
		untrusted = ids
	case spec.UntrustedNodesID != nil:
		untrusted = append(untrusted, spec.UntrustedNodesID...)
	}

	def := spec.DefaultNode
	if def == "" {
		def = defaultNode
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	current, err := resource.DecodeState(resp)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  reconcile.State{"default": def, "untrustedNodes": untrusted},
		Schema:   schema,
		Noun:     "untrusted client network configuration",
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

	if _, err := h.client.Put(ctx, apiPath, snap.Desired); err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}
	h.log.WithFields(map[string]any{"resource": res.ID}).Info("untrusted client network updated")
	return resource.Applied(evalResult, "Untrusted Client Network configuration updated successfully"), nil
}
