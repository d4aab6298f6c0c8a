package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

// Registry maps resource types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *logger.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   log,
	}
}

// Register adds a handler. Registering a type twice is an error.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return gridctlerrors.NewHandlerError("", fmt.Errorf("handler is nil"))
	}

	meta := h.Metadata()
	if strings.TrimSpace(meta.Type) == "" {
		return gridctlerrors.NewHandlerError("", fmt.Errorf("handler metadata requires a non-empty Type"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[meta.Type]; exists {
		return gridctlerrors.NewHandlerError(meta.Type, fmt.Errorf("already registered"))
	}
	r.handlers[meta.Type] = h

	r.logger.WithFields(map[string]any{"type": meta.Type}).Debug("registered resource handler")
	return nil
}

// Get returns the handler for a resource type.
func (r *Registry) Get(resourceType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[resourceType]
	if !ok {
		return nil, ErrHandlerNotFound{Type: resourceType}
	}
	return h, nil
}

// List returns the metadata of every handler sorted by type.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
