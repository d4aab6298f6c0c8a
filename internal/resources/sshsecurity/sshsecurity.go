// Package sshsecurity manages whether the grid accepts external SSH access.
package sshsecurity

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

const apiPath = "api/v4/grid/ssh-security-setting"

// Handler reconciles the ssh_security singleton.
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
		Type:        config.TypeSSHSecurity,
		Description: "External SSH access to grid nodes",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.SSHSecurity
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("ssh_security configuration is required"))
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
		Desired:  resource.NewState().Set("allowExternalAccess", spec.AllowExternalAccess).State(),
		Noun:     "SSH security setting",
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
	h.log.WithFields(map[string]any{"resource": res.ID}).Info("SSH security setting updated")
	return resource.Applied(evalResult, "SSH security setting updated successfully"), nil
}
