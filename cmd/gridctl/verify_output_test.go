package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/model"
)

func TestPrintTableOutput(t *testing.T) {
	summary := &model.VerificationSummary{}
	summary.Add(model.VerificationResult{
		ResourceID: "s3_domains",
		Type:       "domain_names",
		Status:     model.StatusSatisfied,
		Message:    "endpoint domain names are up to date",
		Duration:   1500 * time.Millisecond,
		Timestamp:  time.Now(),
	})
	summary.Add(model.VerificationResult{
		ResourceID: "vlan_100",
		Type:       "vlan_interface",
		Status:     model.StatusMissing,
		Message:    "VLAN interface does not exist",
		Duration:   2 * time.Second,
		Timestamp:  time.Now(),
	})

	out := &bytes.Buffer{}
	printTableOutput(out, summary)

	output := out.String()
	require.Contains(t, output, "Verification Results")
	require.Contains(t, output, "s3_domains")
	require.Contains(t, output, "vlan_interface")
	require.Contains(t, output, "Summary:")
	require.Contains(t, output, "✔ Satisfied:  1")
	require.Contains(t, output, "✖ Missing:    1")
	require.Contains(t, output, "gridctl apply")
}

func TestPrintVerboseOutputIncludesDetails(t *testing.T) {
	summary := &model.VerificationSummary{}
	summary.Add(model.VerificationResult{
		ResourceID: "smtp_alerts",
		Status:     model.StatusDrifted,
		Message:    "alert receiver differs",
		Details:    "--- diff ---",
	})
	summary.Add(model.VerificationResult{
		ResourceID: "gateway_443",
		Status:     model.StatusBlocked,
		Message:    "blocked",
		Error:      errors.New("network failure"),
	})

	out := &bytes.Buffer{}
	printVerboseOutput(out, summary)

	output := out.String()
	require.Contains(t, output, "Detailed Diff Output")
	require.Contains(t, output, "--- Resource: smtp_alerts ---")
	require.Contains(t, output, "--- diff ---")
	require.Contains(t, output, "--- Resource: gateway_443 ---")
	require.Contains(t, output, "network failure")
}

func TestStatusSymbolsAndTruncation(t *testing.T) {
	require.Equal(t, "✔", getStatusSymbol(model.StatusSatisfied))
	require.Equal(t, "✖", getStatusSymbol(model.StatusExtraneous))
	require.Equal(t, "⚠", getStatusSymbol(model.StatusDrifted))
	require.Equal(t, "?", getStatusSymbol(model.StatusUnknown))

	require.Equal(t, "short", truncateString("short", 10))
	require.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}
