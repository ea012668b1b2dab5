// Package repository declares the storage-agnostic persistence contract
// (C3) that the build service, executor, and audit engine depend on.
// Two implementations exist: postgres (production) and memory (tests).
package repository

import (
	"context"
	"time"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
)

// BuildRepository persists Build entities.
type BuildRepository interface {
	CreateBuild(ctx context.Context, build *domain.Build) (*domain.Build, error)
	GetBuild(ctx context.Context, id string) (*domain.Build, error)
	UpdateBuildStatus(ctx context.Context, id string, status domain.BuildStatus, completedAt *time.Time) error
	DeleteBuild(ctx context.Context, id string) error
	ListBuildsIntersecting(ctx context.Context, world string, box geometry.BoundingBox) ([]*domain.Build, error)
}

// TaskRepository persists Task entities and the dense task_order queue.
type TaskRepository interface {
	AddTaskToEnd(ctx context.Context, buildID string, task *domain.Task) (*domain.Task, error)
	GetTasksOrdered(ctx context.Context, buildID string) ([]*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ReplaceTaskQueue(ctx context.Context, buildID string, tasks []*domain.Task) error
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, executedAt *time.Time, errorMessage string) error
	UpdateTaskData(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	ListTasksIntersecting(ctx context.Context, world string, box geometry.BoundingBox) ([]*domain.Task, error)
}

// Repository is the combined persistence contract injected into the
// build service, one connection pool behind both halves.
type Repository interface {
	BuildRepository
	TaskRepository
}
