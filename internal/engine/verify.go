package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// DefaultVerifyTimeout bounds each Evaluate when settings.timeout is unset.
const DefaultVerifyTimeout = 30 * time.Second

// Executor handles read-only verification.
type Executor struct {
	logger *logger.Logger
}

// NewExecutor creates a new executor instance.
func NewExecutor(log *logger.Logger) *Executor {
	return &Executor{
		logger: log,
	}
}

// Verify evaluates every resource in dependency order without mutating the
// grid. A resource whose dependency is not satisfied is reported as blocked
// and not evaluated. Read failures are reported as unknown; invalid
// declarations abort the run.
func (e *Executor) Verify(execCtx *ExecutionContext, resources []config.Resource) (*model.VerificationSummary, error) {
	start := time.Now()

	graph, err := BuildDAG(resources)
	if err != nil {
		return nil, err
	}

	baseCtx := execCtx.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	timeout := DefaultVerifyTimeout
	if execCtx.Config != nil && execCtx.Config.Settings.Timeout > 0 {
		timeout = time.Duration(execCtx.Config.Settings.Timeout) * time.Second
	}

	summary := &model.VerificationSummary{Results: make([]model.VerificationResult, 0, len(resources))}
	statusByID := make(map[string]model.VerificationStatus, len(resources))

	record := func(result model.VerificationResult) {
		summary.Add(result)
		statusByID[result.ResourceID] = result.Status
	}

	for _, level := range graph.Levels {
		for _, id := range level {
			res := graph.Nodes[id].Resource

			if err := baseCtx.Err(); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}

			var unsatisfied []string
			for _, dep := range res.DependsOn {
				if status := statusByID[dep]; status != model.StatusSatisfied {
					unsatisfied = append(unsatisfied, fmt.Sprintf("%s (%s)", dep, status))
				}
			}
			if len(unsatisfied) > 0 {
				joined := strings.Join(unsatisfied, ", ")
				record(model.VerificationResult{
					ResourceID: res.ID,
					Type:       res.Type,
					Status:     model.StatusBlocked,
					Message:    "blocked: dependencies not satisfied: " + joined,
					Error:      fmt.Errorf("dependencies not satisfied: %s", joined),
					Timestamp:  time.Now(),
				})
				continue
			}

			h, err := execCtx.Registry.Get(res.Type)
			if err != nil {
				record(model.VerificationResult{
					ResourceID: res.ID,
					Type:       res.Type,
					Status:     model.StatusBlocked,
					Message:    fmt.Sprintf("no handler for type %s", res.Type),
					Error:      err,
					Timestamp:  time.Now(),
				})
				continue
			}

			meta := h.Metadata()
			if !execCtx.GridVersion.IsZero() {
				if err := sgapi.RequireVersion(meta.Type, meta.MinVersion, execCtx.GridVersion); err != nil {
					record(model.VerificationResult{
						ResourceID: res.ID,
						Type:       res.Type,
						Status:     model.StatusBlocked,
						Message:    err.Error(),
						Error:      err,
						Timestamp:  time.Now(),
					})
					continue
				}
			}

			resStart := time.Now()
			resCtx, cancel := context.WithTimeout(baseCtx, timeout)
			evalResult, evalErr := h.Evaluate(resCtx, *res)
			cancel()

			if evalErr != nil {
				var stateErr *resource.StateError
				if errors.As(evalErr, &stateErr) {
					record(model.VerificationResult{
						ResourceID: res.ID,
						Type:       res.Type,
						Status:     model.StatusUnknown,
						Message:    stateErr.Error(),
						Error:      stateErr.Unwrap(),
						Duration:   time.Since(resStart),
						Timestamp:  time.Now(),
					})
					e.logger.WithFields(map[string]any{"resource": res.ID}).Warn("state could not be read")
					continue
				}
				summary.Duration = time.Since(start)
				return summary, evalErr
			}

			record(model.VerificationResult{
				ResourceID: res.ID,
				Type:       res.Type,
				Status:     evalResult.CurrentState,
				Message:    evalResult.Message,
				Details:    evalResult.Diff,
				Duration:   time.Since(resStart),
				Timestamp:  time.Now(),
			})
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}
