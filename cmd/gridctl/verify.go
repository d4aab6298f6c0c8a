package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/engine"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resources"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

type verifyOptions struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
	Timeout    time.Duration
	Source     *config.Source
	Out        io.Writer
}

var verifyCmdRunner = runVerify

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <config-file>",
		Short: "Report drift between the grid and a configuration document",
		Long: `Verify reads every declared resource from the grid and compares it with
the document without making changes. Returns exit code 0 if all resources are
satisfied, 1 if any change is needed, 2 for configuration errors and 3 when
the grid could not be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]
			opts.Verbose = root.verbose
			opts.Source = root.source
			opts.Out = cmd.OutOrStdout()

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return &exitError{code: 2, err: err}
			}

			return verifyCmdRunner(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, fmt.Sprintf("Timeout per resource; overrides settings.timeout (default %s)", engine.DefaultVerifyTimeout))

	return cmd
}

func runVerify(ctx context.Context, opts verifyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("parse configuration: %w", err)}
	}

	log, err := newLogger(opts.Verbose, !opts.JSON)
	if err != nil {
		return &exitError{code: 3, err: err}
	}

	if opts.Timeout > 0 {
		cfg.Settings.Timeout = max(int(opts.Timeout.Seconds()), 1)
	}

	client, gridVersion, err := connectGrid(ctx, opts.Source, cfg.Connection, log)
	if err != nil {
		return exitForError(err)
	}

	registry, err := resources.NewRegistry(client, log)
	if err != nil {
		return &exitError{code: 3, err: err}
	}

	execCtx := engine.NewExecutionContext(ctx, cfg, registry, log)
	execCtx.GridVersion = gridVersion

	log.WithFields(map[string]any{
		"config":    opts.ConfigPath,
		"resources": len(cfg.Resources),
	}).Info("Starting verification")

	summary, err := engine.NewExecutor(log).Verify(execCtx, cfg.Resources)
	if err != nil {
		return exitForError(err)
	}

	log.WithFields(map[string]any{
		"total":      summary.TotalResources,
		"satisfied":  summary.Satisfied,
		"missing":    summary.Missing,
		"drifted":    summary.Drifted,
		"extraneous": summary.Extraneous,
		"blocked":    summary.Blocked,
		"unknown":    summary.Unknown,
		"duration":   summary.Duration.String(),
	}).Info(engine.VerifyOutcome(summary))

	switch {
	case opts.JSON:
		if err := printJSONOutput(out, summary, opts.ConfigPath); err != nil {
			return &exitError{code: 3, err: err}
		}
	case opts.Verbose:
		printVerboseOutput(out, summary)
	default:
		printTableOutput(out, summary)
	}

	if code := summary.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func exitForError(err error) error {
	var validationErr *gridctlerrors.ValidationError
	if errors.As(err, &validationErr) {
		return &exitError{code: 2, err: fmt.Errorf("configuration error: %w", err)}
	}
	return &exitError{code: 3, err: fmt.Errorf("verification error: %w", err)}
}

func printTableOutput(out io.Writer, summary *model.VerificationSummary) {
	fmt.Fprintln(out, "\nVerification Results:")

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Resource", "Type", "Status", "Duration", "Message"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, result := range summary.Results {
		table.Append([]string{
			result.ResourceID,
			result.Type,
			fmt.Sprintf("%s %s", getStatusSymbol(result.Status), result.Status),
			fmt.Sprintf("%.2fs", result.Duration.Seconds()),
			truncateString(result.Message, 60),
		})
	}
	table.Render()

	fmt.Fprintf(out, "\nSummary:\n")
	fmt.Fprintf(out, "  Total:        %d\n", summary.TotalResources)
	fmt.Fprintf(out, "  ✔ Satisfied:  %d\n", summary.Satisfied)
	fmt.Fprintf(out, "  ✖ Missing:    %d\n", summary.Missing)
	fmt.Fprintf(out, "  ⚠ Drifted:    %d\n", summary.Drifted)
	fmt.Fprintf(out, "  ✖ Extraneous: %d\n", summary.Extraneous)
	fmt.Fprintf(out, "  🚫 Blocked:   %d\n", summary.Blocked)
	fmt.Fprintf(out, "  ? Unknown:    %d\n", summary.Unknown)
	fmt.Fprintf(out, "  Duration:     %s\n", summary.Duration.String())

	if summary.AllSatisfied() {
		fmt.Fprintln(out, "\n✅ All resources satisfied - no changes needed")
	} else {
		fmt.Fprintln(out, "\n❌ Changes needed - run 'gridctl apply' to fix")
	}
}

func printVerboseOutput(out io.Writer, summary *model.VerificationSummary) {
	printTableOutput(out, summary)

	hasDetails := false
	for _, result := range summary.Results {
		drift := result.Status == model.StatusDrifted || result.Status == model.StatusMissing || result.Status == model.StatusExtraneous
		if drift && result.Details != "" {
			if !hasDetails {
				fmt.Fprintln(out, "\nDetailed Diff Output:")
				fmt.Fprintln(out, strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Fprintf(out, "\n--- Resource: %s ---\n", result.ResourceID)
			fmt.Fprintln(out, result.Details)
		}
		if (result.Status == model.StatusBlocked || result.Status == model.StatusUnknown) && result.Error != nil {
			if !hasDetails {
				fmt.Fprintln(out, "\nError Details:")
				fmt.Fprintln(out, strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Fprintf(out, "\n--- Resource: %s ---\n", result.ResourceID)
			fmt.Fprintf(out, "Error: %v\n", result.Error)
		}
	}
}

func printJSONOutput(out io.Writer, summary *model.VerificationSummary, configPath string) error {
	type JSONResult struct {
		ResourceID string  `json:"resource_id"`
		Type       string  `json:"type"`
		Status     string  `json:"status"`
		Message    string  `json:"message"`
		Details    string  `json:"details,omitempty"`
		Error      string  `json:"error,omitempty"`
		Duration   float64 `json:"duration_seconds"`
		Timestamp  string  `json:"timestamp"`
	}

	type JSONSummary struct {
		TotalResources int     `json:"total_resources"`
		Satisfied      int     `json:"satisfied"`
		Missing        int     `json:"missing"`
		Drifted        int     `json:"drifted"`
		Extraneous     int     `json:"extraneous"`
		Blocked        int     `json:"blocked"`
		Unknown        int     `json:"unknown"`
		Duration       float64 `json:"duration_seconds"`
	}

	type JSONOutput struct {
		ConfigFile string       `json:"config_file"`
		Summary    JSONSummary  `json:"summary"`
		Results    []JSONResult `json:"results"`
	}

	jsonOutput := JSONOutput{
		ConfigFile: configPath,
		Summary: JSONSummary{
			TotalResources: summary.TotalResources,
			Satisfied:      summary.Satisfied,
			Missing:        summary.Missing,
			Drifted:        summary.Drifted,
			Extraneous:     summary.Extraneous,
			Blocked:        summary.Blocked,
			Unknown:        summary.Unknown,
			Duration:       summary.Duration.Seconds(),
		},
		Results: make([]JSONResult, len(summary.Results)),
	}

	for i, result := range summary.Results {
		jsonResult := JSONResult{
			ResourceID: result.ResourceID,
			Type:       result.Type,
			Status:     string(result.Status),
			Message:    result.Message,
			Details:    result.Details,
			Duration:   result.Duration.Seconds(),
			Timestamp:  result.Timestamp.Format(time.RFC3339),
		}
		if result.Error != nil {
			jsonResult.Error = result.Error.Error()
		}
		jsonOutput.Results[i] = jsonResult
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonOutput)
}

func getStatusSymbol(status model.VerificationStatus) string {
	switch status {
	case model.StatusSatisfied:
		return "✔"
	case model.StatusMissing, model.StatusExtraneous:
		return "✖"
	case model.StatusDrifted:
		return "⚠"
	case model.StatusBlocked:
		return "🚫"
	default:
		return "?"
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
