// Package reconcile decides what a declarative apply must do for one
// resource: create, delete, modify or nothing, plus the minimal set of fields
// a modify request has to carry. It performs no I/O.
package reconcile

import (
	"errors"
	"fmt"
)

// ErrInconsistentDecision signals a modify decision with nothing to change.
var ErrInconsistentDecision = errors.New("inconsistent decision: modify with empty change set")

// Phase tracks where a reconciliation stands.
type Phase string

const (
	PhaseUnevaluated Phase = "unevaluated"
	PhaseEvaluated   Phase = "evaluated"
	PhaseApplied     Phase = "applied"
	PhaseCheckOnly   Phase = "check_only"
)

// Decision is the evaluated outcome for one resource.
type Decision struct {
	Action    Action
	ChangeSet ChangeSet
}

// Changed reports whether the decision requires a mutation.
func (d Decision) Changed() bool {
	return d.Action != "" && d.Action != ActionNone
}

// Phase is PhaseEvaluated once an action was decided.
func (d Decision) Phase() Phase {
	if d.Action == "" {
		return PhaseUnevaluated
	}
	return PhaseEvaluated
}

// Finish moves an evaluated decision to its terminal phase.
func (d Decision) Finish(dryRun bool) Outcome {
	phase := PhaseApplied
	if dryRun {
		phase = PhaseCheckOnly
	}
	return Outcome{
		Action:    d.Action,
		ChangeSet: d.ChangeSet,
		Changed:   d.Changed(),
		Phase:     phase,
	}
}

// Outcome is what a reconciliation reports to its invoker.
type Outcome struct {
	Action    Action
	ChangeSet ChangeSet
	Changed   bool
	Phase     Phase
}

// ShouldMutate is true only when a change is needed and the caller is not in
// check mode.
func (o Outcome) ShouldMutate() bool {
	return o.Phase == PhaseApplied && o.Changed
}

// Reconcile evaluates current against desired for the given lifecycle.
// For create the ChangeSet is nil: the full desired state is the create body.
// For delete it is nil as well.
func Reconcile(current, desired State, lifecycle Lifecycle, schema Schema) (Decision, error) {
	action, err := DecideAction(current, lifecycle)
	if err != nil {
		return Decision{}, err
	}

	if action != ActionModify {
		return Decision{Action: action}, nil
	}

	changes := ComputeChangeSet(current, desired, schema)
	if changes.Empty() {
		return Decision{Action: ActionNone}, nil
	}

	decision := Decision{Action: ActionModify, ChangeSet: changes}
	if err := decision.check(); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

func (d Decision) check() error {
	if d.Action == ActionModify && d.ChangeSet.Empty() {
		return ErrInconsistentDecision
	}
	if d.Action != ActionModify && !d.ChangeSet.Empty() {
		return fmt.Errorf("%s decision must not carry a change set (%d fields)", d.Action, len(d.ChangeSet))
	}
	return nil
}

// Validate checks the decision invariants. Handlers that assemble a Decision
// by hand (for example from several sub-resources) call it before acting.
func (d Decision) Validate() error {
	switch d.Action {
	case ActionNone, ActionCreate, ActionDelete, ActionModify:
	default:
		return fmt.Errorf("unknown action %q", string(d.Action))
	}
	return d.check()
}
