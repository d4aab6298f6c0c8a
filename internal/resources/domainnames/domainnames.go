// Package domainnames manages the S3 endpoint domain names of the grid.
package domainnames

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
	apiPath = "api/v4/grid/domain-names"

	// field wraps the bare list the API exchanges so it can be compared
	// like any other state.
	field = "domainNames"
)

var schema = reconcile.Schema{field: reconcile.FieldUnordered}

// Handler reconciles the domain_names singleton.
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
		Type:        config.TypeDomainNames,
		Description: "S3 endpoint domain names",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

// Evaluate implements resource.Handler. The list is compared as a set.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.DomainNames
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("domain_names configuration is required"))
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	var names []string
	if err := resp.Decode(&names); err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	if names == nil {
		names = []string{}
	}

	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  reconcile.State{field: names},
		Desired:  reconcile.State{field: append([]string(nil), spec.DomainNames...)},
		Schema:   schema,
		Noun:     "endpoint domain names",
	})
}

// Apply implements resource.Handler. The whole list is replaced.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, err := resource.SnapshotOf(evalResult)
	if err != nil {
		return nil, err
	}

	if _, err := h.client.Put(ctx, apiPath, snap.Desired[field]); err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}
	h.log.WithFields(map[string]any{"resource": res.ID}).Info("endpoint domain names updated")
	return resource.Applied(evalResult, "Endpoint domain name updated successfully"), nil
}
