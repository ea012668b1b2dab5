// Package worldeffect defines the abstract world-effect ports (C5) the
// task executor dispatches onto, plus the single serial tick executor
// every port call is enqueued on.
package worldeffect

import "context"

// PortResult is the outcome of a single world-effect call. Counters are
// kind-specific (e.g. "blocks_set", "blocks_filled").
type PortResult struct {
	Success  bool
	Error    string
	Counters map[string]int
}

// BlockSetPort places heterogeneous per-cell blocks (BLOCK_SET).
type BlockSetPort interface {
	SetBlocks(ctx context.Context, data map[string]interface{}) <-chan PortResult
}

// BlockFillPort fills a rectangular region with one block type (BLOCK_FILL).
type BlockFillPort interface {
	FillBox(ctx context.Context, data map[string]interface{}) <-chan PortResult
}

// PrefabPort builds a structured prefab: door, stairs, window, torch,
// sign, or ladder.
type PrefabPort interface {
	BuildPrefab(ctx context.Context, kind string, data map[string]interface{}) <-chan PortResult
}

// Ports bundles the three world-effect surfaces the executor dispatches to.
type Ports struct {
	BlockSet  BlockSetPort
	BlockFill BlockFillPort
	Prefab    PrefabPort
}
