// Package resource defines the contract every grid resource handler
// satisfies, plus helpers shared by the handlers.
package resource

import (
	"context"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// Handler reconciles one resource type against the grid.
//
// Implementations should:
//   - Translate the typed spec into API field names in a static table
//   - Read current state in Evaluate and hand the rest to reconcile.Reconcile
//   - Issue POST, PUT or DELETE requests only from Apply
type Handler interface {
	// Metadata returns the handler's identity and requirements.
	Metadata() Metadata

	// Evaluate reads current state and decides what Apply must do. It MUST
	// NOT issue mutating requests.
	//
	// Returns a ValidationError, ExecutionError or StateError when the
	// evaluation cannot be completed.
	Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error)

	// Apply performs the mutation selected by evalResult.Decision. The
	// executor only calls it when the decision requires action and dry-run
	// is off.
	Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error)
}

// Metadata describes a handler.
type Metadata struct {
	// Type is the resource type literal used in documents.
	Type        string
	Description string

	// MinVersion is the oldest grid release the handler supports. The zero
	// value means any release.
	MinVersion sgapi.Version
}
