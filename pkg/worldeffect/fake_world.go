package worldeffect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/voxelforge/buildcore/pkg/metrics"
	"github.com/voxelforge/buildcore/pkg/taskdata"
)

// FakeWorld is an in-memory voxel world standing in for the single
// external tick-loop resource the ports dispatch to. Every call is
// enqueued onto a TickExecutor and guarded by a circuit breaker so
// repeated port failures fail fast instead of queuing up behind a
// wedged world.
type FakeWorld struct {
	tick    *TickExecutor
	breaker *gobreaker.CircuitBreaker

	mu       sync.Mutex
	blocks   map[[3]int]string
	forceErr map[string]string // task_type -> error to force, for tests
}

// NewFakeWorld builds a FakeWorld whose ports enqueue work onto tick.
func NewFakeWorld(tick *TickExecutor) *FakeWorld {
	settings := gobreaker.Settings{
		Name:        "world-effect",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip()
			}
		},
	}
	return &FakeWorld{
		tick:     tick,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		blocks:   make(map[[3]int]string),
		forceErr: make(map[string]string),
	}
}

// ForceError makes every call dispatched for kind fail with msg, until
// cleared by ForceError(kind, "").
func (w *FakeWorld) ForceError(kind, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if msg == "" {
		delete(w.forceErr, kind)
		return
	}
	w.forceErr[kind] = msg
}

// BlockAt returns the block name placed at (x,y,z), if any.
func (w *FakeWorld) BlockAt(x, y, z int) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	name, ok := w.blocks[[3]int{x, y, z}]
	return name, ok
}

func (w *FakeWorld) forcedErrorFor(kind string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg, ok := w.forceErr[kind]
	return msg, ok
}

func (w *FakeWorld) dispatch(ctx context.Context, kind string, fn func() PortResult) <-chan PortResult {
	out := make(chan PortResult, 1)
	go func() {
		result, err := w.breaker.Execute(func() (interface{}, error) {
			select {
			case <-ctx.Done():
				return PortResult{Success: false, Error: ctx.Err().Error()}, ctx.Err()
			case r := <-w.tick.Enqueue(func() PortResult {
				if msg, forced := w.forcedErrorFor(kind); forced {
					return PortResult{Success: false, Error: msg}
				}
				return fn()
			}):
				if !r.Success {
					return r, fmt.Errorf("%s", r.Error)
				}
				return r, nil
			}
		})
		if err != nil {
			if r, ok := result.(PortResult); ok {
				out <- r
				return
			}
			out <- PortResult{Success: false, Error: err.Error()}
			return
		}
		out <- result.(PortResult)
	}()
	return out
}

func (w *FakeWorld) setBlock(x, y, z int, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks[[3]int{x, y, z}] = name
}

// SetBlocks places each non-null cell of the BLOCK_SET 3-D array.
func (w *FakeWorld) SetBlocks(ctx context.Context, data map[string]interface{}) <-chan PortResult {
	return w.dispatch(ctx, "BLOCK_SET", func() PortResult {
		startX, _ := taskdata.Int(data, "start_x")
		startY, _ := taskdata.Int(data, "start_y")
		startZ, _ := taskdata.Int(data, "start_z")
		blocks, _ := taskdata.Array(data, "blocks")

		count := 0
		for dx, layerRaw := range blocks {
			layer, ok := layerRaw.([]interface{})
			if !ok {
				continue
			}
			for dy, rowRaw := range layer {
				row, ok := rowRaw.([]interface{})
				if !ok {
					continue
				}
				for dz, cell := range row {
					if cell == nil {
						continue
					}
					name := "unknown"
					if m, ok := cell.(map[string]interface{}); ok {
						if n, ok := taskdata.String(m, "block_name"); ok {
							name = n
						}
					}
					w.setBlock(startX+dx, startY+dy, startZ+dz, name)
					count++
				}
			}
		}
		return PortResult{Success: true, Counters: map[string]int{"blocks_set": count}}
	})
}

// FillBox fills the [x1..x2]x[y1..y2]x[z1..z2] region with block_type.
func (w *FakeWorld) FillBox(ctx context.Context, data map[string]interface{}) <-chan PortResult {
	return w.dispatch(ctx, "BLOCK_FILL", func() PortResult {
		x1, _ := taskdata.Int(data, "x1")
		y1, _ := taskdata.Int(data, "y1")
		z1, _ := taskdata.Int(data, "z1")
		x2, _ := taskdata.Int(data, "x2")
		y2, _ := taskdata.Int(data, "y2")
		z2, _ := taskdata.Int(data, "z2")
		blockType, _ := taskdata.String(data, "block_type")

		count := 0
		for x := min(x1, x2); x <= max(x1, x2); x++ {
			for y := min(y1, y2); y <= max(y1, y2); y++ {
				for z := min(z1, z2); z <= max(z1, z2); z++ {
					w.setBlock(x, y, z, blockType)
					count++
				}
			}
		}
		return PortResult{Success: true, Counters: map[string]int{"blocks_filled": count}}
	})
}

// BuildPrefab places one representative cell of a prefab kind. It does
// not re-derive geometry (pkg/geometry already did that for bounds); it
// places only the anchor cell (x,y,z, or start_x,start_y,start_z when
// those are absent), for every kind including multi-cell ones, which is
// enough to exercise the breaker/tick plumbing a real prefab renderer
// would sit behind.
func (w *FakeWorld) BuildPrefab(ctx context.Context, kind string, data map[string]interface{}) <-chan PortResult {
	return w.dispatch(ctx, kind, func() PortResult {
		blockType, _ := taskdata.String(data, "block_type")
		x, hasX := taskdata.Int(data, "x")
		y, hasY := taskdata.Int(data, "y")
		z, hasZ := taskdata.Int(data, "z")
		if !hasX || !hasY || !hasZ {
			x, _ = taskdata.Int(data, "start_x")
			y, _ = taskdata.Int(data, "start_y")
			z, _ = taskdata.Int(data, "start_z")
		}
		w.setBlock(x, y, z, blockType)
		return PortResult{Success: true, Counters: map[string]int{"prefab_cells": 1}}
	})
}
