package model

import (
	"time"

	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
)

const (
	// StatusPending indicates a resource has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a resource is being reconciled.
	StatusRunning = "running"
	// StatusSuccess marks a resource that was changed.
	StatusSuccess = "success"
	// StatusUnchanged marks a resource that already matched.
	StatusUnchanged = "unchanged"
	// StatusSkipped indicates the executor skipped the resource.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure.
	StatusFailed = "failed"
	// StatusWouldCreate indicates dry-run would create a resource.
	StatusWouldCreate = "would_create"
	// StatusWouldUpdate indicates dry-run would update a resource.
	StatusWouldUpdate = "would_update"
	// StatusWouldDelete indicates dry-run would delete a resource.
	StatusWouldDelete = "would_delete"
)

// ResourceResult captures the outcome of reconciling a single resource.
type ResourceResult struct {
	ResourceID string
	Status     string
	Action     reconcile.Action
	Changed    bool
	Message    string
	Diff       string
	Error      error
	Duration   time.Duration
	Timestamp  time.Time
}

// DryRunStatus returns the would_* status for an action, or StatusUnchanged.
func DryRunStatus(action reconcile.Action) string {
	switch action {
	case reconcile.ActionCreate:
		return StatusWouldCreate
	case reconcile.ActionModify:
		return StatusWouldUpdate
	case reconcile.ActionDelete:
		return StatusWouldDelete
	default:
		return StatusUnchanged
	}
}
