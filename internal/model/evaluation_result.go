package model

import "github.com/alexisbeaulieu97/gridctl/internal/reconcile"

// EvaluationResult is returned by Handler.Evaluate and passed back to
// Handler.Apply when action is required.
type EvaluationResult struct {
	ResourceID string

	// CurrentState is the resource's standing relative to the declaration.
	CurrentState VerificationStatus

	// Decision is the reconciliation outcome. RequiresAction mirrors
	// Decision.Changed().
	Decision       reconcile.Decision
	RequiresAction bool

	Message string

	// Diff renders the change set for dry-run previews.
	Diff string

	// InternalData carries handler specific state (ids, fetched objects)
	// from Evaluate to Apply.
	InternalData any
}

// NewEvaluation derives the status and RequiresAction from a decision.
func NewEvaluation(resourceID string, decision reconcile.Decision, message string) *EvaluationResult {
	return &EvaluationResult{
		ResourceID:     resourceID,
		CurrentState:   StatusFromAction(decision.Action),
		Decision:       decision,
		RequiresAction: decision.Changed(),
		Message:        message,
	}
}

// StatusFromAction maps a reconciliation action onto a drift status.
func StatusFromAction(action reconcile.Action) VerificationStatus {
	switch action {
	case reconcile.ActionNone:
		return StatusSatisfied
	case reconcile.ActionCreate:
		return StatusMissing
	case reconcile.ActionModify:
		return StatusDrifted
	case reconcile.ActionDelete:
		return StatusExtraneous
	default:
		return StatusUnknown
	}
}
