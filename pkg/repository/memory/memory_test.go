package memory

import (
	"context"
	"testing"
	"time"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
)

func TestAddTaskToEndAssignsDenseOrder(t *testing.T) {
	repo := New()
	ctx := context.Background()
	build := domain.NewBuild("castle", "", "", time.Now())
	if _, err := repo.CreateBuild(ctx, build); err != nil {
		t.Fatalf("CreateBuild: %v", err)
	}

	for i := 0; i < 3; i++ {
		task := domain.NewTask(build.ID, 0, domain.TaskPrefabTorch, map[string]interface{}{"x": i}, "")
		got, err := repo.AddTaskToEnd(ctx, build.ID, task)
		if err != nil {
			t.Fatalf("AddTaskToEnd: %v", err)
		}
		if got.Order != i {
			t.Errorf("task %d: Order = %d, want %d", i, got.Order, i)
		}
	}

	tasks, err := repo.GetTasksOrdered(ctx, build.ID)
	if err != nil {
		t.Fatalf("GetTasksOrdered: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	for i, task := range tasks {
		if task.Order != i {
			t.Errorf("tasks[%d].Order = %d, want %d", i, task.Order, i)
		}
	}
}

func TestReplaceTaskQueueReassignsDenseOrder(t *testing.T) {
	repo := New()
	ctx := context.Background()
	build := domain.NewBuild("castle", "", "", time.Now())
	repo.CreateBuild(ctx, build)

	t1 := domain.NewTask(build.ID, 7, domain.TaskPrefabTorch, map[string]interface{}{}, "")
	t2 := domain.NewTask(build.ID, 12, domain.TaskPrefabTorch, map[string]interface{}{}, "")
	if err := repo.ReplaceTaskQueue(ctx, build.ID, []*domain.Task{t1, t2}); err != nil {
		t.Fatalf("ReplaceTaskQueue: %v", err)
	}

	tasks, _ := repo.GetTasksOrdered(ctx, build.ID)
	if len(tasks) != 2 || tasks[0].Order != 0 || tasks[1].Order != 1 {
		t.Fatalf("got %+v, want orders [0,1]", tasks)
	}
}

func TestDeleteBuildCascadesToTasks(t *testing.T) {
	repo := New()
	ctx := context.Background()
	build := domain.NewBuild("castle", "", "", time.Now())
	repo.CreateBuild(ctx, build)
	task := domain.NewTask(build.ID, 0, domain.TaskPrefabTorch, map[string]interface{}{}, "")
	repo.AddTaskToEnd(ctx, build.ID, task)

	if err := repo.DeleteBuild(ctx, build.ID); err != nil {
		t.Fatalf("DeleteBuild: %v", err)
	}
	if _, err := repo.GetTask(ctx, task.ID); err == nil {
		t.Errorf("expected task to be cascade-deleted")
	}
}

func TestListBuildsIntersectingOrdersByCreatedAt(t *testing.T) {
	repo := New()
	ctx := context.Background()
	base := time.Now()

	later := domain.NewBuild("second", "", "minecraft:overworld", base.Add(20*time.Second))
	earlier := domain.NewBuild("first", "", "minecraft:overworld", base.Add(10*time.Second))
	repo.CreateBuild(ctx, later)
	repo.CreateBuild(ctx, earlier)

	box := geometry.New(1, 64, 1, 5, 68, 5)
	for _, b := range []*domain.Build{later, earlier} {
		task := domain.NewTask(b.ID, 0, domain.TaskPrefabTorch, map[string]interface{}{}, "")
		pt := geometry.Point(2, 65, 2)
		task.Bounds = &pt
		repo.AddTaskToEnd(ctx, b.ID, task)
	}

	got, err := repo.ListBuildsIntersecting(ctx, "minecraft:overworld", box)
	if err != nil {
		t.Fatalf("ListBuildsIntersecting: %v", err)
	}
	if len(got) != 2 || got[0].ID != earlier.ID || got[1].ID != later.ID {
		t.Fatalf("got order %v, want [earlier, later]", got)
	}
}

func TestListTasksIntersectingFiltersByWorldAndBounds(t *testing.T) {
	repo := New()
	ctx := context.Background()
	build := domain.NewBuild("castle", "", "minecraft:overworld", time.Now())
	repo.CreateBuild(ctx, build)

	inside := domain.NewTask(build.ID, 0, domain.TaskPrefabTorch, map[string]interface{}{}, "")
	insideBox := geometry.Point(2, 2, 2)
	inside.Bounds = &insideBox
	repo.AddTaskToEnd(ctx, build.ID, inside)

	outside := domain.NewTask(build.ID, 0, domain.TaskPrefabTorch, map[string]interface{}{}, "")
	outsideBox := geometry.Point(100, 100, 100)
	outside.Bounds = &outsideBox
	repo.AddTaskToEnd(ctx, build.ID, outside)

	got, err := repo.ListTasksIntersecting(ctx, "minecraft:overworld", geometry.New(0, 0, 0, 5, 5, 5))
	if err != nil {
		t.Fatalf("ListTasksIntersecting: %v", err)
	}
	if len(got) != 1 || got[0].ID != inside.ID {
		t.Fatalf("got %+v, want only the inside task", got)
	}
}
