// Package executor dispatches a queued task onto its world-effect port
// (C6): validate payload, await the port's future with a timeout, and
// report the result. Writing the task's EXECUTING and final statuses is
// left to the caller (the build service).
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/worldeffect"
)

// Handler dispatches a task's payload onto a world-effect port and
// returns its future.
type Handler func(ctx context.Context, data map[string]interface{}) <-chan worldeffect.PortResult

// Registry maps task_type to the handler that executes it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.TaskType]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.TaskType]Handler)}
}

// Register binds taskType to handler. Registering an already-registered
// type is an error.
func (r *Registry) Register(taskType domain.TaskType, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("executor: task type %q already registered", taskType)
	}
	r.handlers[taskType] = handler
	return nil
}

// Unregister removes taskType's handler, if any.
func (r *Registry) Unregister(taskType domain.TaskType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, taskType)
}

// IsRegistered reports whether taskType has a handler.
func (r *Registry) IsRegistered(taskType domain.TaskType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[taskType]
	return ok
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// GetRegisteredTypes lists every registered task_type.
func (r *Registry) GetRegisteredTypes() []domain.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TaskType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Dispatch runs taskType's handler against data, or returns an error if
// no handler is registered.
func (r *Registry) Dispatch(ctx context.Context, taskType domain.TaskType, data map[string]interface{}) (<-chan worldeffect.PortResult, error) {
	r.mu.RLock()
	handler, ok := r.handlers[taskType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("executor: unknown task type %q", taskType)
	}
	return handler(ctx, data), nil
}

// NewDefaultRegistry wires every known task_type onto ports, the
// standard production dispatch table.
func NewDefaultRegistry(ports *worldeffect.Ports) *Registry {
	r := NewRegistry()
	r.Register(domain.TaskBlockSet, ports.BlockSet.SetBlocks)
	r.Register(domain.TaskBlockFill, ports.BlockFill.FillBox)
	for _, prefabType := range []domain.TaskType{
		domain.TaskPrefabDoor, domain.TaskPrefabStairs, domain.TaskPrefabWindow,
		domain.TaskPrefabTorch, domain.TaskPrefabSign, domain.TaskPrefabLadder,
	} {
		kind := prefabType
		r.Register(kind, func(ctx context.Context, data map[string]interface{}) <-chan worldeffect.PortResult {
			return ports.Prefab.BuildPrefab(ctx, string(kind), data)
		})
	}
	return r
}
