package engine

import (
	"context"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// HandlerSource resolves the handler of a resource type.
type HandlerSource interface {
	Get(resourceType string) (resource.Handler, error)
}

// ExecutionContext contains runtime state shared across executor workers.
type ExecutionContext struct {
	Config          *config.Config
	DryRun          bool
	Verbose         bool
	ContinueOnError bool
	WorkerPool      chan struct{}
	Results         map[string]*model.ResourceResult
	Registry        HandlerSource
	Logger          *logger.Logger
	Context         context.Context

	// GridVersion gates handlers with a minimum version. Zero skips the check.
	GridVersion sgapi.Version

	// OnStart and OnResult, when set, are called from worker goroutines.
	OnStart  func(resourceID string)
	OnResult func(model.ResourceResult)
}

// NewExecutionContext builds a context from the document settings.
func NewExecutionContext(ctx context.Context, cfg *config.Config, registry HandlerSource, log *logger.Logger) *ExecutionContext {
	parallel := cfg.Settings.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	return &ExecutionContext{
		Config:          cfg,
		DryRun:          cfg.Settings.DryRun,
		Verbose:         cfg.Settings.Verbose,
		ContinueOnError: cfg.Settings.ContinueOnError,
		WorkerPool:      make(chan struct{}, parallel),
		Results:         make(map[string]*model.ResourceResult),
		Registry:        registry,
		Logger:          log,
		Context:         ctx,
	}
}
