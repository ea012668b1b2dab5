// Package memory is an in-process Repository used by build-service
// and audit tests (design note §9: "tests supply in-memory
// stores and deterministic clocks").
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/repository"
)

// Repository is a mutex-guarded in-memory implementation of
// repository.Repository. Builds and tasks are stored by value copy on
// every read/write, so a caller holding a returned pointer cannot change
// the stored fields. task_data is copied one level deep: nested slices
// and maps inside it are shared with the stored copy.
type Repository struct {
	mu     sync.Mutex
	builds map[string]domain.Build
	tasks  map[string]domain.Task // keyed by task id
}

// New constructs an empty Repository.
func New() *Repository {
	return &Repository{
		builds: make(map[string]domain.Build),
		tasks:  make(map[string]domain.Task),
	}
}

var _ repository.Repository = (*Repository)(nil)

func cloneBuild(b domain.Build) *domain.Build {
	out := b
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func cloneTask(t domain.Task) *domain.Task {
	out := t
	if t.ExecutedAt != nil {
		ts := *t.ExecutedAt
		out.ExecutedAt = &ts
	}
	if t.Bounds != nil {
		b := *t.Bounds
		out.Bounds = &b
	}
	out.Data = make(map[string]interface{}, len(t.Data))
	for k, v := range t.Data {
		out.Data[k] = v
	}
	return &out
}

// CreateBuild stores build and returns the stored copy.
func (r *Repository) CreateBuild(_ context.Context, build *domain.Build) (*domain.Build, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds[build.ID] = *cloneBuild(*build)
	return cloneBuild(r.builds[build.ID]), nil
}

// GetBuild returns the build by id.
func (r *Repository) GetBuild(_ context.Context, id string) (*domain.Build, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.builds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBuild(b), nil
}

// UpdateBuildStatus sets status and completedAt on an existing build.
func (r *Repository) UpdateBuildStatus(_ context.Context, id string, status domain.BuildStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.builds[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	if completedAt != nil {
		t := *completedAt
		b.CompletedAt = &t
	}
	r.builds[id] = b
	return nil
}

// DeleteBuild removes build and cascades to its tasks.
func (r *Repository) DeleteBuild(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.builds, id)
	for taskID, t := range r.tasks {
		if t.BuildID == id {
			delete(r.tasks, taskID)
		}
	}
	return nil
}

// ListBuildsIntersecting returns builds in world with at least one task
// whose bounds intersect box, ordered by created_at ascending.
func (r *Repository) ListBuildsIntersecting(_ context.Context, world string, box geometry.BoundingBox) ([]*domain.Build, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make(map[string]bool)
	for _, t := range r.tasks {
		if t.Bounds == nil || !t.Bounds.Intersects(box) {
			continue
		}
		if b, ok := r.builds[t.BuildID]; ok && b.World == world {
			matched[t.BuildID] = true
		}
	}
	out := make([]*domain.Build, 0, len(matched))
	for id := range matched {
		b := r.builds[id]
		out = append(out, cloneBuild(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AddTaskToEnd assigns the next task_order in buildID and stores task.
func (r *Repository) AddTaskToEnd(_ context.Context, buildID string, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, t := range r.tasks {
		if t.BuildID == buildID && t.Order+1 > next {
			next = t.Order + 1
		}
	}
	task.BuildID = buildID
	task.Order = next
	r.tasks[task.ID] = *cloneTask(*task)
	return cloneTask(r.tasks[task.ID]), nil
}

// GetTasksOrdered returns every task in buildID ordered by task_order.
func (r *Repository) GetTasksOrdered(_ context.Context, buildID string) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasksForBuildLocked(buildID), nil
}

func (r *Repository) tasksForBuildLocked(buildID string) []*domain.Task {
	out := make([]*domain.Task, 0)
	for _, t := range r.tasks {
		if t.BuildID == buildID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// GetTask fetches a single task by id.
func (r *Repository) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTask(t), nil
}

// ReplaceTaskQueue replaces every task belonging to buildID with tasks,
// assigning dense task_order by slice position.
func (r *Repository) ReplaceTaskQueue(_ context.Context, buildID string, tasks []*domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for taskID, t := range r.tasks {
		if t.BuildID == buildID {
			delete(r.tasks, taskID)
		}
	}
	for i, t := range tasks {
		t.Order = i
		t.BuildID = buildID
		r.tasks[t.ID] = *cloneTask(*t)
	}
	return nil
}

// UpdateTaskStatus transitions a task's status.
func (r *Repository) UpdateTaskStatus(_ context.Context, taskID string, status domain.TaskStatus, executedAt *time.Time, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	if executedAt != nil {
		ts := *executedAt
		t.ExecutedAt = &ts
	} else {
		t.ExecutedAt = nil
	}
	t.ErrorMessage = errorMessage
	r.tasks[taskID] = t
	return nil
}

// UpdateTaskData persists a task's task_data, description, and bounds.
func (r *Repository) UpdateTaskData(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	existing := r.tasks[task.ID]
	clone := cloneTask(*task)
	clone.BuildID = existing.BuildID
	clone.Order = existing.Order
	clone.Status = existing.Status
	r.tasks[task.ID] = *clone
	return nil
}

// DeleteTask removes a single task.
func (r *Repository) DeleteTask(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, taskID)
	return nil
}

// ListTasksIntersecting returns every task in world whose bounds
// intersect box.
func (r *Repository) ListTasksIntersecting(_ context.Context, world string, box geometry.BoundingBox) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Task, 0)
	for _, t := range r.tasks {
		if t.Bounds == nil || !t.Bounds.Intersects(box) {
			continue
		}
		b, ok := r.builds[t.BuildID]
		if !ok || b.World != world {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}
