package executor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/metrics"
	"github.com/voxelforge/buildcore/pkg/validation"
)

// DefaultExecutionTimeout is used when Executor is constructed with a
// non-positive timeout.
const DefaultExecutionTimeout = 30 * time.Second

const tracerName = "github.com/voxelforge/buildcore/pkg/executor"

// TaskExecutionResult is what the build service persists onto a task
// after Execute returns.
type TaskExecutionResult struct {
	Success      bool
	ErrorMessage string
	Details      map[string]int
}

// Executor runs one task to completion against its registered handler.
// It holds no per-call state; concurrency across tasks within a build is
// the build service's responsibility.
type Executor struct {
	registry  *Registry
	validator *validation.TaskValidator
	timeout   time.Duration
	logger    *zap.Logger
}

// New builds an Executor. A non-positive timeout falls back to
// DefaultExecutionTimeout.
func New(registry *Registry, validator *validation.TaskValidator, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, validator: validator, timeout: timeout, logger: logger}
}

// Execute validates task.Data, dispatches it to its world-effect port,
// and awaits the result up to the configured timeout.
func (e *Executor) Execute(ctx context.Context, task *domain.Task) TaskExecutionResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Execute", trace.WithAttributes(
		attribute.String("task_id", task.ID),
		attribute.String("task_type", string(task.Type)),
	))
	defer span.End()

	timer := metrics.NewTimer()
	result := e.execute(ctx, task)
	timer.RecordTaskExecution(string(task.Type), result.Success)

	if result.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, result.ErrorMessage)
		span.SetAttributes(attribute.String("error", result.ErrorMessage))
	}
	return result
}

func (e *Executor) execute(ctx context.Context, task *domain.Task) (result TaskExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := apierrors.NewExecutionError(task.ID, string(task.Type), fmt.Errorf("panic during dispatch: %v", r))
			e.logger.Error("task dispatch panicked", zap.String("task_id", task.ID), zap.Error(err))
			result = TaskExecutionResult{Success: false, ErrorMessage: err.Error()}
		}
	}()

	if verr := e.validator.Validate(string(task.Type), task.Data); verr != nil {
		metrics.RecordTaskValidationError(string(task.Type))
		return TaskExecutionResult{Success: false, ErrorMessage: verr.Error()}
	}

	future, err := e.registry.Dispatch(ctx, task.Type, task.Data)
	if err != nil {
		e.logger.Error("dispatch failed", zap.String("task_id", task.ID), zap.Error(err))
		return TaskExecutionResult{Success: false, ErrorMessage: err.Error()}
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case result := <-future:
		if !result.Success {
			return TaskExecutionResult{Success: false, ErrorMessage: result.Error, Details: result.Counters}
		}
		return TaskExecutionResult{Success: true, Details: result.Counters}
	case <-timer.C:
		e.logger.Warn("task execution timed out", zap.String("task_id", task.ID), zap.Duration("timeout", e.timeout))
		return TaskExecutionResult{Success: false, ErrorMessage: "execution timed out"}
	case <-ctx.Done():
		return TaskExecutionResult{Success: false, ErrorMessage: ctx.Err().Error()}
	}
}
