// Package alertreceiver manages the email alert receiver.
package alertreceiver

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
	apiPath     = "api/v3/grid/alert-receivers"
	defaultType = "email"
)

// The grid never returns credentials.
var schema = reconcile.Schema{
	"password":  reconcile.FieldIgnored,
	"clientKey": reconcile.FieldIgnored,
}

// Handler reconciles alert_receiver resources, matched by receiver type.
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
		Type:        config.TypeAlertReceiver,
		Description: "Email alert receiver",
	}
}

func receiverType(spec *config.AlertReceiverSpec) string {
	if spec.ReceiverType == "" {
		return defaultType
	}
	return spec.ReceiverType
}

func desiredState(spec *config.AlertReceiverSpec) reconcile.State {
	enable := true
	if spec.Enable != nil {
		enable = *spec.Enable
	}
	return resource.NewState().
		Put("type", receiverType(spec)).
		Put("enable", enable).
		Set("smtpHost", spec.SMTPHost).
		Set("smtpPort", spec.SMTPPort).
		Set("username", spec.Username).
		Set("password", spec.Password).
		Set("fromEmail", spec.FromEmail).
		Set("toEmails", spec.ToEmails).
		Set("minimumSeverity", spec.MinimumSeverity).
		Set("caCert", spec.CACert).
		Set("clientCert", spec.ClientCert).
		Set("clientKey", spec.ClientKey).
		State()
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.AlertReceiver
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("alert_receiver configuration is required"))
	}
	lifecycle, err := resource.LifecycleOf(res)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	wantType := receiverType(spec)
	current, err := resource.FindItem(resp, func(item reconcile.State) bool {
		return resource.StringField(item, "type") == wantType
	})
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	desired := desiredState(spec)
	if current != nil && lifecycle == reconcile.LifecyclePresent &&
		current["enable"] == false && desired["enable"] == false {
		result := model.NewEvaluation(res.ID, reconcile.Decision{Action: reconcile.ActionNone}, "alert receiver is disabled")
		result.InternalData = resource.Snapshot{Current: current, Desired: desired}
		return result, nil
	}

	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desired,
		Schema:   schema,
		Noun:     "alert receiver",
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

	log := h.log.WithFields(map[string]any{"resource": res.ID, "action": evalResult.Decision.Action.String()})
	var message string
	switch evalResult.Decision.Action {
	case reconcile.ActionCreate:
		_, err = h.client.Post(ctx, apiPath, snap.Desired)
		message = "Alert receiver created successfully"
	case reconcile.ActionModify:
		_, err = h.client.Put(ctx, itemPath(snap.Current), snap.Desired)
		message = "Alert receiver updated successfully"
	case reconcile.ActionDelete:
		_, err = h.client.Delete(ctx, itemPath(snap.Current), nil)
		message = "Alert receiver deleted successfully"
	}
	if err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}

	log.Info(message)
	return resource.Applied(evalResult, message), nil
}

func itemPath(current reconcile.State) string {
	return apiPath + "/" + resource.StringField(current, "id")
}
