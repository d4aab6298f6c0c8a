package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
)

func TestVerificationStatus_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status VerificationStatus
		want   bool
	}{
		{"satisfied is valid", StatusSatisfied, true},
		{"missing is valid", StatusMissing, true},
		{"drifted is valid", StatusDrifted, true},
		{"extraneous is valid", StatusExtraneous, true},
		{"blocked is valid", StatusBlocked, true},
		{"unknown is valid", StatusUnknown, true},
		{"invalid status", VerificationStatus("invalid"), false},
		{"empty status", VerificationStatus(""), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestStatusFromAction(t *testing.T) {
	t.Parallel()

	require.Equal(t, StatusSatisfied, StatusFromAction(reconcile.ActionNone))
	require.Equal(t, StatusMissing, StatusFromAction(reconcile.ActionCreate))
	require.Equal(t, StatusDrifted, StatusFromAction(reconcile.ActionModify))
	require.Equal(t, StatusExtraneous, StatusFromAction(reconcile.ActionDelete))
	require.Equal(t, StatusUnknown, StatusFromAction(""))
}

func TestNewEvaluation(t *testing.T) {
	t.Parallel()

	eval := NewEvaluation("smtp", reconcile.Decision{Action: reconcile.ActionModify, ChangeSet: reconcile.ChangeSet{"smtpPort": 35}}, "drift")
	require.Equal(t, "smtp", eval.ResourceID)
	require.Equal(t, StatusDrifted, eval.CurrentState)
	require.True(t, eval.RequiresAction)

	eval = NewEvaluation("smtp", reconcile.Decision{Action: reconcile.ActionNone}, "ok")
	require.Equal(t, StatusSatisfied, eval.CurrentState)
	require.False(t, eval.RequiresAction)
}

func TestDryRunStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, StatusWouldCreate, DryRunStatus(reconcile.ActionCreate))
	require.Equal(t, StatusWouldUpdate, DryRunStatus(reconcile.ActionModify))
	require.Equal(t, StatusWouldDelete, DryRunStatus(reconcile.ActionDelete))
	require.Equal(t, StatusUnchanged, DryRunStatus(reconcile.ActionNone))
}

func TestVerificationSummary(t *testing.T) {
	t.Parallel()

	t.Run("all satisfied", func(t *testing.T) {
		t.Parallel()
		summary := &VerificationSummary{}
		summary.Add(VerificationResult{ResourceID: "a", Status: StatusSatisfied})
		summary.Add(VerificationResult{ResourceID: "b", Status: StatusSatisfied})

		require.True(t, summary.AllSatisfied())
		require.False(t, summary.NeedsApply())
		require.Equal(t, 0, summary.ExitCode())
		require.Len(t, summary.Results, 2)
	})

	t.Run("drift and errors need apply", func(t *testing.T) {
		t.Parallel()
		summary := &VerificationSummary{}
		summary.Add(VerificationResult{ResourceID: "a", Status: StatusSatisfied})
		summary.Add(VerificationResult{ResourceID: "b", Status: StatusDrifted})
		summary.Add(VerificationResult{ResourceID: "c", Status: StatusExtraneous})
		summary.Add(VerificationResult{ResourceID: "d", Status: StatusUnknown, Error: errors.New("timeout")})
		summary.Add(VerificationResult{ResourceID: "e", Status: StatusBlocked})
		summary.Add(VerificationResult{ResourceID: "f", Status: StatusMissing})

		require.Equal(t, 6, summary.TotalResources)
		require.Equal(t, 1, summary.Drifted)
		require.Equal(t, 1, summary.Extraneous)
		require.Equal(t, 1, summary.Unknown)
		require.Equal(t, 1, summary.Blocked)
		require.Equal(t, 1, summary.Missing)
		require.True(t, summary.NeedsApply())
		require.Equal(t, 1, summary.ExitCode())
	})

	t.Run("empty summary is satisfied", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, 0, (&VerificationSummary{}).ExitCode())
	})
}
