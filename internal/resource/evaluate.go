package resource

import (
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/pkg/diff"
)

// Evaluation is the comparison input a handler hands to Decide.
type Evaluation struct {
	Resource config.Resource
	Current  reconcile.State
	Desired  reconcile.State
	Schema   reconcile.Schema

	// Noun names the object in messages, e.g. "alert receiver".
	Noun string
}

// LifecycleOf parses the resource state, defaulting to present.
func LifecycleOf(res config.Resource) (reconcile.Lifecycle, error) {
	if res.State == "" {
		return reconcile.LifecyclePresent, nil
	}
	l, err := reconcile.ParseLifecycle(res.State)
	if err != nil {
		return "", NewValidationError(res.ID, err)
	}
	return l, nil
}

// Decide runs the reconciliation core and wraps the decision in an
// EvaluationResult with a message and a redacted diff.
func Decide(in Evaluation) (*model.EvaluationResult, error) {
	lifecycle, err := LifecycleOf(in.Resource)
	if err != nil {
		return nil, err
	}
	decision, err := reconcile.Reconcile(in.Current, in.Desired, lifecycle, in.Schema)
	if err != nil {
		return nil, NewValidationError(in.Resource.ID, err)
	}

	result := model.NewEvaluation(in.Resource.ID, decision, Describe(in.Noun, decision))

	var rendered string
	switch decision.Action {
	case reconcile.ActionCreate:
		rendered, err = diff.RenderChangeSet(nil, Redact(in.Desired), in.Resource.ID)
	case reconcile.ActionModify:
		rendered, err = diff.RenderChangeSet(Redact(in.Current), Redact(decision.ChangeSet), in.Resource.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("render diff for %s: %w", in.Resource.ID, err)
	}
	result.Diff = rendered
	result.InternalData = Snapshot{Current: in.Current, Desired: in.Desired}
	return result, nil
}

// Snapshot is the default InternalData of an evaluation: the states the
// decision was computed from.
type Snapshot struct {
	Current reconcile.State
	Desired reconcile.State
}

// SnapshotOf extracts the Snapshot stored by Decide.
func SnapshotOf(evalResult *model.EvaluationResult) (Snapshot, error) {
	if evalResult == nil {
		return Snapshot{}, fmt.Errorf("missing evaluation result")
	}
	snap, ok := evalResult.InternalData.(Snapshot)
	if !ok {
		return Snapshot{}, NewValidationError(evalResult.ResourceID, fmt.Errorf("evaluation carries no state snapshot"))
	}
	return snap, nil
}

// Describe returns the human message for a decision.
func Describe(noun string, decision reconcile.Decision) string {
	switch decision.Action {
	case reconcile.ActionCreate:
		return noun + " does not exist and will be created"
	case reconcile.ActionDelete:
		return noun + " exists and will be deleted"
	case reconcile.ActionModify:
		return fmt.Sprintf("%s differs in %d field(s): %v", noun, len(decision.ChangeSet), decision.ChangeSet.Keys())
	default:
		return noun + " is up to date"
	}
}

// Applied builds the result of a successful Apply.
func Applied(evalResult *model.EvaluationResult, message string) *model.ResourceResult {
	return &model.ResourceResult{
		ResourceID: evalResult.ResourceID,
		Status:     model.StatusSuccess,
		Action:     evalResult.Decision.Action,
		Changed:    evalResult.Decision.Changed(),
		Message:    message,
		Diff:       evalResult.Diff,
	}
}

// Unchanged builds the result of an Apply that had nothing to do.
func Unchanged(evalResult *model.EvaluationResult) *model.ResourceResult {
	return &model.ResourceResult{
		ResourceID: evalResult.ResourceID,
		Status:     model.StatusUnchanged,
		Action:     reconcile.ActionNone,
		Message:    evalResult.Message,
	}
}
