package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxelforge/buildcore/pkg/geometry"
)

// TaskType discriminates the shape of a Task's Data and the world-effect
// port that executes it.
type TaskType string

const (
	TaskBlockSet     TaskType = "BLOCK_SET"
	TaskBlockFill    TaskType = "BLOCK_FILL"
	TaskPrefabDoor   TaskType = "PREFAB_DOOR"
	TaskPrefabStairs TaskType = "PREFAB_STAIRS"
	TaskPrefabWindow TaskType = "PREFAB_WINDOW"
	TaskPrefabTorch  TaskType = "PREFAB_TORCH"
	TaskPrefabSign   TaskType = "PREFAB_SIGN"
	TaskPrefabLadder TaskType = "PREFAB_LADDER"
)

// ValidTaskTypes lists every recognized task_type, for validation and
// enumeration.
var ValidTaskTypes = []TaskType{
	TaskBlockSet, TaskBlockFill,
	TaskPrefabDoor, TaskPrefabStairs, TaskPrefabWindow,
	TaskPrefabTorch, TaskPrefabSign, TaskPrefabLadder,
}

// IsValid reports whether t is one of ValidTaskTypes.
func (t TaskType) IsValid() bool {
	for _, v := range ValidTaskTypes {
		if v == t {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "QUEUED"
	TaskExecuting TaskStatus = "EXECUTING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskSkipped   TaskStatus = "SKIPPED"
)

// CanTransitionTo enforces the one legal path: QUEUED -> EXECUTING ->
// {COMPLETED, FAILED}. A reset (FAILED -> QUEUED) is a distinct,
// explicit operation (BuildService.ResetTask), not a generic transition,
// so it is intentionally not legal here.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskQueued:
		return next == TaskExecuting
	case TaskExecuting:
		return next == TaskCompleted || next == TaskFailed
	default:
		return false
	}
}

// Task is one world-mutation operation within a Build.
type Task struct {
	ID           string
	BuildID      string
	Order        int
	Type         TaskType
	Data         map[string]interface{}
	Status       TaskStatus
	ExecutedAt   *time.Time
	ErrorMessage string
	Description  string
	Bounds       *geometry.BoundingBox
}

// NewTask constructs a Task in status QUEUED with a fresh identifier.
// Bounds is left nil; the caller computes it via geometry.Derive.
func NewTask(buildID string, order int, taskType TaskType, data map[string]interface{}, description string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		BuildID:     buildID,
		Order:       order,
		Type:        taskType,
		Data:        data,
		Status:      TaskQueued,
		Description: description,
	}
}

// MergeData shallow-merges patch onto the task's existing Data, field by
// field, and returns the merged map without mutating either input.
func MergeData(base, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}
