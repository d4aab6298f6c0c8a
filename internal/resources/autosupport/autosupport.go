// Package autosupport manages AutoSupport delivery settings.
package autosupport

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

const apiPath = "api/v4/private/autosupport"

// Handler reconciles the autosupport singleton.
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
		Type:        config.TypeAutosupport,
		Description: "AutoSupport triggers and destinations",
	}
}

func desiredState(spec *config.AutosupportSpec) reconcile.State {
	b := resource.NewState().
		Set("aodEnable", spec.AODEnable).
		Set("eventEnable", spec.EventEnable).
		Set("certEnable", spec.CertEnable).
		Set("availableUpdatesEnable", spec.AvailableUpdatesEnable).
		Set("transport", spec.Transport).
		Set("weeklyEnable", spec.WeeklyEnable)

	if spec.Destinations != nil {
		destinations := make([]any, 0, len(spec.Destinations))
		for _, d := range spec.Destinations {
			dest := map[string]any{"hostname": d.Hostname, "port": d.Port}
			if d.CACert != "" {
				dest["caCert"] = d.CACert
			}
			destinations = append(destinations, dest)
		}
		b.Put("destinations", destinations)
	}
	return b.State()
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.Autosupport
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("autosupport configuration is required"))
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
		Desired:  desiredState(spec),
		Noun:     "autosupport configuration",
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

	body := resource.UpdateBody(snap.Current, evalResult.Decision.ChangeSet, snap.Desired, nil)
	if _, err := h.client.Put(ctx, apiPath, body); err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}
	h.log.WithFields(map[string]any{"resource": res.ID}).Info("autosupport configuration updated")
	return resource.Applied(evalResult, "Autosupport configuration updated successfully"), nil
}
