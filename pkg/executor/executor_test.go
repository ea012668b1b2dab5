package executor

import (
	"context"
	"testing"
	"time"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/validation"
	"github.com/voxelforge/buildcore/pkg/worldeffect"
)

func newTestExecutor(t *testing.T, timeout time.Duration) (*Executor, *worldeffect.FakeWorld) {
	t.Helper()
	tick := worldeffect.NewTickExecutor(16)
	t.Cleanup(tick.Stop)
	world := worldeffect.NewFakeWorld(tick)
	registry := NewDefaultRegistry(&worldeffect.Ports{BlockSet: world, BlockFill: world, Prefab: world})
	return New(registry, validation.New(), timeout, nil), world
}

func TestExecuteSucceedsForValidTask(t *testing.T) {
	exec, world := newTestExecutor(t, time.Second)
	task := domain.NewTask("b1", 0, domain.TaskBlockFill, map[string]interface{}{
		"x1": 0, "y1": 0, "z1": 0, "x2": 1, "y2": 0, "z2": 0,
		"block_type": "minecraft:stone",
	}, "")

	result := exec.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.ErrorMessage)
	}
	if result.Details["blocks_filled"] != 2 {
		t.Fatalf("blocks_filled = %d, want 2", result.Details["blocks_filled"])
	}
	if _, ok := world.BlockAt(1, 0, 0); !ok {
		t.Fatalf("expected block at (1,0,0)")
	}
}

func TestExecuteFailsValidationWithoutDispatching(t *testing.T) {
	exec, world := newTestExecutor(t, time.Second)
	task := domain.NewTask("b1", 0, domain.TaskBlockFill, map[string]interface{}{
		"x1": 0, "y1": 0, "z1": 0, "x2": 1, "y2": 0, "z2": 0,
		// block_type intentionally missing
	}, "")

	result := exec.Execute(context.Background(), task)
	if result.Success {
		t.Fatal("expected validation failure")
	}
	if _, ok := world.BlockAt(0, 0, 0); ok {
		t.Fatal("expected no dispatch to the world on validation failure")
	}
}

func TestExecutePropagatesPortFailure(t *testing.T) {
	exec, world := newTestExecutor(t, time.Second)
	world.ForceError("PREFAB_LADDER", "port offline")

	task := domain.NewTask("b1", 0, domain.TaskPrefabLadder, map[string]interface{}{
		"x": 0, "y": 0, "z": 0, "height": 3, "block_type": "minecraft:ladder",
	}, "")

	result := exec.Execute(context.Background(), task)
	if result.Success || result.ErrorMessage != "port offline" {
		t.Fatalf("got %+v, want forced port failure", result)
	}
}

func TestExecuteTimesOutWhenPortNeverResponds(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.TaskPrefabTorch, func(ctx context.Context, data map[string]interface{}) <-chan worldeffect.PortResult {
		return make(chan worldeffect.PortResult) // never sends
	})
	exec := New(registry, validation.New(), 10*time.Millisecond, nil)

	task := domain.NewTask("b1", 0, domain.TaskPrefabTorch, map[string]interface{}{
		"x": 0, "y": 0, "z": 0, "block_type": "minecraft:torch",
	}, "")

	result := exec.Execute(context.Background(), task)
	if result.Success || result.ErrorMessage != "execution timed out" {
		t.Fatalf("got %+v, want timeout", result)
	}
}

func TestExecuteUnknownTaskTypeFailsWithoutPanicking(t *testing.T) {
	registry := NewRegistry() // nothing registered
	exec := New(registry, validation.New(), time.Second, nil)

	task := &domain.Task{ID: "t1", BuildID: "b1", Type: "PREFAB_TORCH", Data: map[string]interface{}{
		"x": 0, "y": 0, "z": 0, "block_type": "minecraft:torch",
	}}

	result := exec.Execute(context.Background(), task)
	if result.Success {
		t.Fatal("expected failure for unregistered task type")
	}
}

func TestNewDefaultsZeroTimeout(t *testing.T) {
	exec := New(NewRegistry(), validation.New(), 0, nil)
	if exec.timeout != DefaultExecutionTimeout {
		t.Fatalf("timeout = %v, want %v", exec.timeout, DefaultExecutionTimeout)
	}
}
