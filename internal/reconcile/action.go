package reconcile

import "fmt"

// Action is the decision taken for one declared resource.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
	ActionModify Action = "modify"
)

func (a Action) String() string {
	return string(a)
}

// DecideAction chooses create, delete or none from the presence of current
// state and the target lifecycle. A present resource that already exists
// yields ActionModify; callers narrow it to ActionNone once the change set is
// known (see Reconcile).
func DecideAction(current State, lifecycle Lifecycle) (Action, error) {
	exists := current != nil

	switch lifecycle {
	case LifecyclePresent:
		if !exists {
			return ActionCreate, nil
		}
		return ActionModify, nil
	case LifecycleAbsent:
		if exists {
			return ActionDelete, nil
		}
		return ActionNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLifecycle, string(lifecycle))
	}
}
