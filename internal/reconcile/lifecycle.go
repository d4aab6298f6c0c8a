package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLifecycle is returned when a lifecycle literal is neither
// "present" nor "absent". It always indicates a caller defect.
var ErrInvalidLifecycle = errors.New("invalid lifecycle")

// Lifecycle is the declared target existence of a resource.
type Lifecycle string

const (
	LifecyclePresent Lifecycle = "present"
	LifecycleAbsent  Lifecycle = "absent"
)

// ParseLifecycle converts a literal into a Lifecycle. Empty input is not
// defaulted; callers that want "present" as a default must apply it first.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch l := Lifecycle(strings.TrimSpace(s)); l {
	case LifecyclePresent, LifecycleAbsent:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidLifecycle, s, LifecyclePresent, LifecycleAbsent)
	}
}

// Valid reports whether l is one of the supported literals.
func (l Lifecycle) Valid() bool {
	return l == LifecyclePresent || l == LifecycleAbsent
}

func (l Lifecycle) String() string {
	return string(l)
}
