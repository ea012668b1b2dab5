// Package buildservice orchestrates the build/task lifecycle (C7):
// create, queue edits, and execution, against an injected
// repository.Repository, executor.Executor, and Clock.
package buildservice

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/executor"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/metrics"
	"github.com/voxelforge/buildcore/pkg/repository"
	"github.com/voxelforge/buildcore/pkg/validation"
)

const tracerName = "github.com/voxelforge/buildcore/pkg/buildservice"

// ExecutionSummary is returned by ExecuteBuild.
type ExecutionSummary struct {
	BuildID       string
	Success       bool
	TasksExecuted int
	TasksFailed   int
	Message       string
}

// Service orchestrates builds and their task queues.
type Service struct {
	repo      repository.Repository
	executor  *executor.Executor
	validator *validation.TaskValidator
	clock     Clock
	locker    BuildLocker
	logger    *zap.Logger
}

// New builds a Service. A nil validator falls back to validation.New; a
// nil locker falls back to NewLocalLocker; a nil clock falls back to
// SystemClock; a nil logger falls back to a no-op logger.
func New(repo repository.Repository, exec *executor.Executor, validator *validation.TaskValidator, clock Clock, locker BuildLocker, logger *zap.Logger) *Service {
	if validator == nil {
		validator = validation.New()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, executor: exec, validator: validator, clock: clock, locker: locker, logger: logger}
}

func deriveBounds(taskType domain.TaskType, data map[string]interface{}) *geometry.BoundingBox {
	box, ok := geometry.Derive(geometry.Kind(taskType), data)
	if !ok {
		return nil
	}
	return &box
}

// CreateBuild persists a new build in status CREATED. name must be
// non-empty.
func (s *Service) CreateBuild(ctx context.Context, name, description, world string) (*domain.Build, error) {
	if name == "" {
		verr := apierrors.NewValidationError("build", "name is required")
		verr.AddFieldError("name", "must not be empty")
		return nil, verr
	}
	build := domain.NewBuild(name, description, world, s.clock.Now())
	return s.repo.CreateBuild(ctx, build)
}

// GetBuild fetches a build and its tasks ordered by task_order.
func (s *Service) GetBuild(ctx context.Context, buildID string) (*domain.Build, []*domain.Task, error) {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return nil, nil, err
	}
	return build, tasks, nil
}

func (s *Service) requireEditable(build *domain.Build) error {
	if build.IsFrozen() {
		return apierrors.NewStateError("build", "status", string(build.Status), "cannot edit a completed build")
	}
	return nil
}

// AddTask appends taskType/data to the end of buildID's queue.
func (s *Service) AddTask(ctx context.Context, buildID string, taskType domain.TaskType, data map[string]interface{}, description string) (*domain.Task, error) {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(build); err != nil {
		return nil, err
	}
	if verr := s.validator.Validate(string(taskType), data); verr != nil {
		return nil, verr
	}

	task := domain.NewTask(buildID, 0, taskType, data, description)
	task.Bounds = deriveBounds(taskType, data)
	return s.repo.AddTaskToEnd(ctx, buildID, task)
}

// InsertTaskAt inserts a new task at position, clamped to [0, len],
// shifting existing tasks down.
func (s *Service) InsertTaskAt(ctx context.Context, buildID string, position int, taskType domain.TaskType, data map[string]interface{}, description string) (*domain.Task, error) {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(build); err != nil {
		return nil, err
	}
	if verr := s.validator.Validate(string(taskType), data); verr != nil {
		return nil, verr
	}

	existing, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if position < 0 {
		position = 0
	}
	if position > len(existing) {
		position = len(existing)
	}

	newTask := domain.NewTask(buildID, position, taskType, data, description)
	newTask.Bounds = deriveBounds(taskType, data)

	queue := make([]*domain.Task, 0, len(existing)+1)
	queue = append(queue, existing[:position]...)
	queue = append(queue, newTask)
	queue = append(queue, existing[position:]...)

	if err := s.repo.ReplaceTaskQueue(ctx, buildID, queue); err != nil {
		return nil, err
	}
	return newTask, nil
}

// PatchTask shallow-merges patchData onto the task's existing Data
// and/or replaces its description, recomputing bounds from the result.
// At least one of patchData/description must be non-nil.
func (s *Service) PatchTask(ctx context.Context, buildID, taskID string, patchData map[string]interface{}, description *string) (*domain.Task, error) {
	if patchData == nil && description == nil {
		verr := apierrors.NewValidationError("task", "patch must set task_data or description")
		return nil, verr
	}

	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(build); err != nil {
		return nil, err
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.BuildID != buildID {
		return nil, repository.ErrNotFound
	}

	if patchData != nil {
		merged := domain.MergeData(task.Data, patchData)
		if verr := s.validator.Validate(string(task.Type), merged); verr != nil {
			return nil, verr
		}
		task.Data = merged
		task.Bounds = deriveBounds(task.Type, task.Data)
	}
	if description != nil {
		task.Description = *description
	}

	if err := s.repo.UpdateTaskData(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task and compacts the remaining queue's
// task_order back to [0, n-1].
func (s *Service) DeleteTask(ctx context.Context, buildID, taskID string) error {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return err
	}
	if err := s.requireEditable(build); err != nil {
		return err
	}

	existing, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return err
	}
	remaining := make([]*domain.Task, 0, len(existing))
	found := false
	for _, t := range existing {
		if t.ID == taskID {
			found = true
			continue
		}
		remaining = append(remaining, t)
	}
	if !found {
		return repository.ErrNotFound
	}
	return s.repo.ReplaceTaskQueue(ctx, buildID, remaining)
}

// ReorderQueue reassigns task_order to match orderedTaskIDs exactly.
// Every id must belong to buildID and every existing task must appear
// exactly once.
func (s *Service) ReorderQueue(ctx context.Context, buildID string, orderedTaskIDs []string) error {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return err
	}
	if err := s.requireEditable(build); err != nil {
		return err
	}

	existing, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Task, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}
	if len(orderedTaskIDs) != len(existing) {
		return apierrors.NewValidationError("task_queue", "reorder list must contain every task in the build exactly once")
	}

	reordered := make([]*domain.Task, 0, len(orderedTaskIDs))
	seen := make(map[string]bool, len(orderedTaskIDs))
	for _, id := range orderedTaskIDs {
		task, ok := byID[id]
		if !ok || seen[id] {
			return apierrors.NewValidationError("task_queue", fmt.Sprintf("task %s does not belong to build %s", id, buildID))
		}
		seen[id] = true
		reordered = append(reordered, task)
	}
	return s.repo.ReplaceTaskQueue(ctx, buildID, reordered)
}

// ResetTask reverts a FAILED task back to QUEUED so a re-execution can
// retry it, without touching the rest of the queue. Not part of the
// CanTransitionTo state machine: it is an explicit operator action, not
// a normal execution step.
func (s *Service) ResetTask(ctx context.Context, buildID, taskID string) error {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return err
	}
	if err := s.requireEditable(build); err != nil {
		return err
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.BuildID != buildID {
		return repository.ErrNotFound
	}
	if task.Status != domain.TaskFailed {
		return apierrors.NewStateError("task", "status", string(task.Status), "only a failed task can be reset")
	}
	return s.repo.UpdateTaskStatus(ctx, taskID, domain.TaskQueued, nil, "")
}

// ExecuteBuild runs every non-COMPLETED task in buildID's queue in
// order, continuing past individual task failures. While one call holds
// the configured BuildLocker's lock for buildID, a concurrent call for
// the same build id fails at once instead of waiting.
func (s *Service) ExecuteBuild(ctx context.Context, buildID string) (summary *ExecutionSummary, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ExecuteBuild", trace.WithAttributes(attribute.String("build_id", buildID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	unlock, err := s.locker.Lock(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("execute build: %w", err)
	}
	defer unlock()

	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if build.Status == domain.BuildCompleted {
		return nil, apierrors.NewStateError("build", "status", string(build.Status), "build is already completed")
	}

	if err := s.repo.UpdateBuildStatus(ctx, buildID, domain.BuildInProgress, nil); err != nil {
		return nil, err
	}

	tasks, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, task := range tasks {
		if task.Status != domain.TaskCompleted {
			pending++
		}
	}
	metrics.SetQueueDepth(buildID, pending)

	executed, failed := 0, 0
	for _, task := range tasks {
		if task.Status == domain.TaskCompleted {
			metrics.RecordTaskSkipped()
			continue
		}

		if err := s.repo.UpdateTaskStatus(ctx, task.ID, domain.TaskExecuting, nil, ""); err != nil {
			return nil, err
		}

		result := s.executor.Execute(ctx, task)
		now := s.clock.Now()
		executed++
		pending--
		metrics.SetQueueDepth(buildID, pending)
		if result.Success {
			if err := s.repo.UpdateTaskStatus(ctx, task.ID, domain.TaskCompleted, &now, ""); err != nil {
				return nil, err
			}
			continue
		}

		failed++
		if err := s.repo.UpdateTaskStatus(ctx, task.ID, domain.TaskFailed, &now, result.ErrorMessage); err != nil {
			return nil, err
		}
		s.logger.Warn("task execution failed",
			zap.String("build_id", buildID), zap.String("task_id", task.ID), zap.String("error", result.ErrorMessage))
	}

	completedAt := s.clock.Now()
	finalStatus := domain.BuildCompleted
	message := fmt.Sprintf("executed %d task(s), 0 failed", executed)
	if failed > 0 {
		finalStatus = domain.BuildFailed
		message = fmt.Sprintf("executed %d task(s), %d failed", executed, failed)
	}
	if err := s.repo.UpdateBuildStatus(ctx, buildID, finalStatus, &completedAt); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tasks_executed", executed), attribute.Int("tasks_failed", failed))
	metrics.RecordBuildExecuted(failed == 0)

	return &ExecutionSummary{
		BuildID:       buildID,
		Success:       failed == 0,
		TasksExecuted: executed,
		TasksFailed:   failed,
		Message:       message,
	}, nil
}
