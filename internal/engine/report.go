package engine

import (
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
)

// PlanFor builds the execution plan of a document.
func PlanFor(cfg *config.Config) (*ExecutionPlan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	graph, err := BuildDAG(cfg.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to build DAG: %w", err)
	}
	plan, err := GeneratePlan(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	return plan, nil
}

// ApplyReport summarises an apply run.
type ApplyReport struct {
	DryRun          bool
	Total           int
	Changed         int
	Unchanged       int
	Skipped         int
	Failed          int
	FailedResources []string
	Duration        time.Duration
	Results         []model.ResourceResult
}

// Apply plans and executes the document held by execCtx. The report is
// returned even when execution fails.
func Apply(execCtx *ExecutionContext, plan *ExecutionPlan) (*ApplyReport, error) {
	start := time.Now()
	results, err := Execute(execCtx, plan)

	report := NewApplyReport(results, execCtx != nil && execCtx.DryRun)
	report.Duration = time.Since(start)
	if execCtx != nil && execCtx.Config != nil {
		report.Total = len(execCtx.Config.Resources)
	}
	return report, err
}

// NewApplyReport counts results by outcome.
func NewApplyReport(results []model.ResourceResult, dryRun bool) *ApplyReport {
	report := &ApplyReport{
		DryRun:  dryRun,
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		switch {
		case r.Status == model.StatusFailed:
			report.Failed++
			report.FailedResources = append(report.FailedResources, r.ResourceID)
		case r.Status == model.StatusSkipped:
			report.Skipped++
		case r.Changed:
			report.Changed++
		default:
			report.Unchanged++
		}
	}
	return report
}

// Summary renders a one-line outcome.
func (r *ApplyReport) Summary() string {
	if r.Failed > 0 {
		return fmt.Sprintf("%d of %d resources failed: %v", r.Failed, r.Total, r.FailedResources)
	}
	verb := "changed"
	if r.DryRun {
		verb = "would change"
	}
	return fmt.Sprintf("%d %s, %d unchanged, %d skipped (%d resources)", r.Changed, verb, r.Unchanged, r.Skipped, r.Total)
}

// VerifyOutcome describes a verification summary in one line.
func VerifyOutcome(summary *model.VerificationSummary) string {
	switch {
	case summary == nil:
		return "verification did not run"
	case summary.AllSatisfied():
		return fmt.Sprintf("All %d resources satisfied", summary.Satisfied)
	case summary.Missing+summary.Drifted+summary.Extraneous > 0:
		return fmt.Sprintf("%d resources need changes", summary.Missing+summary.Drifted+summary.Extraneous)
	default:
		return fmt.Sprintf("%d resources blocked or unknown", summary.Blocked+summary.Unknown)
	}
}
