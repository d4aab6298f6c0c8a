package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

// Execute runs the execution plan and returns resource results in plan
// order. Levels run one after the other; resources of a level share the
// worker pool. With ContinueOnError every failure is collected and
// dependents of a failed resource are skipped; otherwise the first failure
// cancels the run.
func Execute(execCtx *ExecutionContext, plan *ExecutionPlan) ([]model.ResourceResult, error) {
	if execCtx == nil {
		return nil, gridctlerrors.NewExecutionError("", fmt.Errorf("execution context is nil"))
	}
	if execCtx.Config == nil {
		return nil, gridctlerrors.NewExecutionError("", fmt.Errorf("execution context config is nil"))
	}
	if execCtx.Registry == nil {
		return nil, gridctlerrors.NewExecutionError("", fmt.Errorf("execution context registry is nil"))
	}
	if plan == nil {
		return nil, gridctlerrors.NewExecutionError("", fmt.Errorf("execution plan is nil"))
	}

	baseCtx := execCtx.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	timeout := time.Duration(execCtx.Config.Settings.Timeout) * time.Second

	lookup := make(map[string]*config.Resource, len(execCtx.Config.Resources))
	for i := range execCtx.Config.Resources {
		res := &execCtx.Config.Resources[i]
		lookup[res.ID] = res
	}

	if execCtx.Results == nil {
		execCtx.Results = make(map[string]*model.ResourceResult)
	}

	var resultsMu sync.Mutex
	var allResults []model.ResourceResult
	var errs error

	for _, level := range plan.Levels {
		levelResults := make([]model.ResourceResult, len(level.ResourceIDs))
		var levelErr error
		var errMu sync.Mutex
		var wg sync.WaitGroup

		for idx, id := range level.ResourceIDs {
			res, ok := lookup[id]
			if !ok {
				return allResults, gridctlerrors.NewExecutionError(id, fmt.Errorf("resource not found"))
			}

			resultsMu.Lock()
			blockedBy := failedDependencies(execCtx.Results, res)
			resultsMu.Unlock()
			if len(blockedBy) > 0 {
				skipped := model.ResourceResult{
					ResourceID: res.ID,
					Status:     model.StatusSkipped,
					Message:    "dependency failed: " + strings.Join(blockedBy, ", "),
					Timestamp:  time.Now(),
				}
				levelResults[idx] = skipped
				resultsMu.Lock()
				execCtx.Results[res.ID] = &skipped
				resultsMu.Unlock()
				notify(execCtx, skipped)
				continue
			}

			wg.Add(1)
			go func(idx int, res *config.Resource) {
				defer wg.Done()

				result, err := executeResource(ctx, execCtx, res, timeout)
				if result != nil {
					levelResults[idx] = *result
					resultsMu.Lock()
					execCtx.Results[res.ID] = result
					resultsMu.Unlock()
					notify(execCtx, *result)
				}

				if err != nil {
					execCtx.Logger.WithFields(map[string]any{"resource": res.ID}).Error(err, "resource failed")
					errMu.Lock()
					levelErr = multierr.Append(levelErr, err)
					errMu.Unlock()
					if !execCtx.ContinueOnError {
						cancel()
					}
				}
			}(idx, res)
		}

		wg.Wait()

		for _, res := range levelResults {
			if res.ResourceID != "" {
				allResults = append(allResults, res)
			}
		}

		if levelErr != nil {
			errs = multierr.Append(errs, levelErr)
			if !execCtx.ContinueOnError {
				return allResults, errs
			}
		}
	}

	return allResults, errs
}

func notify(execCtx *ExecutionContext, result model.ResourceResult) {
	if execCtx.OnResult != nil {
		execCtx.OnResult(result)
	}
}

func failedDependencies(results map[string]*model.ResourceResult, res *config.Resource) []string {
	var failed []string
	for _, dep := range res.DependsOn {
		if r, ok := results[dep]; ok && (r.Status == model.StatusFailed || r.Status == model.StatusSkipped) {
			failed = append(failed, dep)
		}
	}
	return failed
}

func executeResource(ctx context.Context, execCtx *ExecutionContext, res *config.Resource, timeout time.Duration) (*model.ResourceResult, error) {
	if ctx.Err() != nil {
		return nil, gridctlerrors.NewExecutionError(res.ID, ctx.Err())
	}

	resCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		resCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if execCtx.WorkerPool != nil {
		select {
		case execCtx.WorkerPool <- struct{}{}:
			defer func() { <-execCtx.WorkerPool }()
		case <-resCtx.Done():
			return timeoutResult(res.ID, resCtx.Err())
		}
	}

	if execCtx.OnStart != nil {
		execCtx.OnStart(res.ID)
	}

	start := time.Now()
	result, err := reconcileResource(resCtx, execCtx, res)
	if result == nil {
		result = &model.ResourceResult{ResourceID: res.ID}
	}
	if result.ResourceID == "" {
		result.ResourceID = res.ID
	}
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	if err != nil {
		return finalizeFailure(result, resCtx, res.ID, err)
	}

	execCtx.Logger.WithFields(map[string]any{
		"resource": res.ID,
		"status":   result.Status,
		"changed":  result.Changed,
	}).Debug(result.Message)
	return result, nil
}

// reconcileResource evaluates a resource and applies the decision unless it
// is a no-op or the run is a dry run.
func reconcileResource(ctx context.Context, execCtx *ExecutionContext, res *config.Resource) (*model.ResourceResult, error) {
	h, err := execCtx.Registry.Get(res.Type)
	if err != nil {
		return nil, err
	}

	meta := h.Metadata()
	if !execCtx.GridVersion.IsZero() {
		if err := sgapi.RequireVersion(meta.Type, meta.MinVersion, execCtx.GridVersion); err != nil {
			return nil, resource.NewValidationError(res.ID, err)
		}
	}

	evalResult, err := h.Evaluate(ctx, *res)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed for resource %s: %w", res.ID, err)
	}
	if err := evalResult.Decision.Validate(); err != nil {
		return nil, resource.NewValidationError(res.ID, err)
	}

	outcome := evalResult.Decision.Finish(execCtx.DryRun)
	if !outcome.ShouldMutate() {
		status := model.StatusUnchanged
		if outcome.Changed {
			status = model.DryRunStatus(outcome.Action)
		}
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     status,
			Action:     outcome.Action,
			Changed:    outcome.Changed,
			Message:    evalResult.Message,
			Diff:       evalResult.Diff,
		}, nil
	}

	result, err := h.Apply(ctx, evalResult, *res)
	if err != nil {
		failure := gridctlerrors.NewActionError(res.ID, string(outcome.Action), err)
		var execErr *gridctlerrors.ExecutionError
		if errors.As(failure, &execErr) && execErr.Request() != "" {
			execCtx.Logger.WithFields(map[string]any{
				"resource": res.ID,
				"action":   outcome.Action,
				"request":  execErr.Request(),
			}).Debug("grid rejected request")
		}
		return &model.ResourceResult{
			ResourceID: res.ID,
			Action:     outcome.Action,
			Diff:       evalResult.Diff,
		}, failure
	}
	if result != nil && result.Status == "" {
		result.Status = model.StatusSuccess
	}
	return result, nil
}

func finalizeFailure(result *model.ResourceResult, resCtx context.Context, id string, err error) (*model.ResourceResult, error) {
	result.Status = model.StatusFailed
	result.Changed = false
	if result.Error == nil {
		result.Error = err
	}
	if result.Message == "" {
		result.Message = err.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(resCtx.Err(), context.DeadlineExceeded) {
		result.Message = "timeout exceeded"
	}

	if _, ok := resource.AsResourceError(err); ok {
		return result, err
	}
	return result, gridctlerrors.NewExecutionError(id, err)
}

func timeoutResult(id string, err error) (*model.ResourceResult, error) {
	if err == nil {
		err = context.DeadlineExceeded
	}
	res := &model.ResourceResult{
		ResourceID: id,
		Status:     model.StatusFailed,
		Message:    "timeout exceeded",
		Error:      err,
		Timestamp:  time.Now(),
	}
	return res, gridctlerrors.NewExecutionError(id, err)
}
