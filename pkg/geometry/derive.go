package geometry

import "github.com/voxelforge/buildcore/pkg/taskdata"

// Kind mirrors domain.TaskType's string values without importing
// pkg/domain, which itself depends on pkg/geometry for Task.Bounds.
type Kind string

const (
	KindBlockSet     Kind = "BLOCK_SET"
	KindBlockFill    Kind = "BLOCK_FILL"
	KindPrefabDoor   Kind = "PREFAB_DOOR"
	KindPrefabStairs Kind = "PREFAB_STAIRS"
	KindPrefabWindow Kind = "PREFAB_WINDOW"
	KindPrefabTorch  Kind = "PREFAB_TORCH"
	KindPrefabSign   Kind = "PREFAB_SIGN"
	KindPrefabLadder Kind = "PREFAB_LADDER"
)

// Derive is the total function bbox_of(task_type, task_data) from
// spec.md §4.1. ok is false when a required field is missing; the task
// remains queueable but invisible to spatial queries.
func Derive(kind Kind, data map[string]interface{}) (box BoundingBox, ok bool) {
	switch kind {
	case KindBlockSet:
		return deriveBlockSet(data)
	case KindBlockFill:
		return deriveBlockFill(data)
	case KindPrefabDoor:
		return derivePrefabDoor(data)
	case KindPrefabStairs:
		return derivePrefabStairs(data)
	case KindPrefabWindow:
		return derivePrefabWindow(data)
	case KindPrefabTorch, KindPrefabSign:
		return deriveSingleCell(data)
	case KindPrefabLadder:
		return derivePrefabLadder(data)
	default:
		return BoundingBox{}, false
	}
}

func deriveBlockSet(data map[string]interface{}) (BoundingBox, bool) {
	sx, ok := taskdata.Int(data, "start_x")
	if !ok {
		return BoundingBox{}, false
	}
	sy, ok := taskdata.Int(data, "start_y")
	if !ok {
		return BoundingBox{}, false
	}
	sz, ok := taskdata.Int(data, "start_z")
	if !ok {
		return BoundingBox{}, false
	}
	blocks, ok := taskdata.Array(data, "blocks")
	if !ok || len(blocks) == 0 {
		return BoundingBox{}, false
	}
	dimX := len(blocks)
	dimY, dimZ := 0, 0
	if plane, ok := blocks[0].([]interface{}); ok && len(plane) > 0 {
		dimY = len(plane)
		if row, ok := plane[0].([]interface{}); ok {
			dimZ = len(row)
		}
	}
	if dimY == 0 || dimZ == 0 {
		return BoundingBox{}, false
	}
	return New(sx, sy, sz, sx+dimX-1, sy+dimY-1, sz+dimZ-1), true
}

func deriveBlockFill(data map[string]interface{}) (BoundingBox, bool) {
	x1, ok1 := taskdata.Int(data, "x1")
	y1, ok2 := taskdata.Int(data, "y1")
	z1, ok3 := taskdata.Int(data, "z1")
	x2, ok4 := taskdata.Int(data, "x2")
	y2, ok5 := taskdata.Int(data, "y2")
	z2, ok6 := taskdata.Int(data, "z2")
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return BoundingBox{}, false
	}
	return New(x1, y1, z1, x2, y2, z2), true
}

// lateralOf returns the unit vector pointing to the right of facing,
// (dx, dz), using the Minecraft convention north=-Z, south=+Z, east=+X,
// west=-X.
func lateralOf(facing string) (dx, dz int, ok bool) {
	switch facing {
	case "north":
		return 1, 0, true
	case "south":
		return -1, 0, true
	case "east":
		return 0, 1, true
	case "west":
		return 0, -1, true
	default:
		return 0, 0, false
	}
}

func derivePrefabDoor(data map[string]interface{}) (BoundingBox, bool) {
	sx, ok := taskdata.Int(data, "start_x")
	if !ok {
		return BoundingBox{}, false
	}
	sy, ok := taskdata.Int(data, "start_y")
	if !ok {
		return BoundingBox{}, false
	}
	sz, ok := taskdata.Int(data, "start_z")
	if !ok {
		return BoundingBox{}, false
	}
	facing, ok := taskdata.String(data, "facing")
	if !ok {
		return BoundingBox{}, false
	}
	width, ok := taskdata.Int(data, "width")
	if !ok || width < 1 {
		return BoundingBox{}, false
	}
	dx, dz, ok := lateralOf(facing)
	if !ok {
		return BoundingBox{}, false
	}
	ex := sx + dx*(width-1)
	ez := sz + dz*(width-1)
	box := New(sx, sy, sz, ex, sy+1, ez)
	return box, true
}

func derivePrefabStairs(data map[string]interface{}) (BoundingBox, bool) {
	sx, ok := taskdata.Int(data, "start_x")
	if !ok {
		return BoundingBox{}, false
	}
	sy, ok := taskdata.Int(data, "start_y")
	if !ok {
		return BoundingBox{}, false
	}
	sz, ok := taskdata.Int(data, "start_z")
	if !ok {
		return BoundingBox{}, false
	}
	ex, ok := taskdata.Int(data, "end_x")
	if !ok {
		return BoundingBox{}, false
	}
	ey, ok := taskdata.Int(data, "end_y")
	if !ok {
		return BoundingBox{}, false
	}
	ez, ok := taskdata.Int(data, "end_z")
	if !ok {
		return BoundingBox{}, false
	}
	direction, ok := taskdata.String(data, "staircase_direction")
	if !ok {
		return BoundingBox{}, false
	}
	base := New(sx, sy, sz, ex, ey, ez)

	// north/south runs along Z; east/west runs along X. The perpendicular
	// horizontal axis is widened, starting from its existing minimum, by
	// the run's span along the travel axis.
	switch direction {
	case "north", "south":
		width := base.ZSpan()
		base.MaxX = base.MinX + width - 1
	case "east", "west":
		width := base.XSpan()
		base.MaxZ = base.MinZ + width - 1
	default:
		return BoundingBox{}, false
	}
	return base, true
}

func derivePrefabWindow(data map[string]interface{}) (BoundingBox, bool) {
	sx, ok := taskdata.Int(data, "start_x")
	if !ok {
		return BoundingBox{}, false
	}
	sy, ok := taskdata.Int(data, "start_y")
	if !ok {
		return BoundingBox{}, false
	}
	sz, ok := taskdata.Int(data, "start_z")
	if !ok {
		return BoundingBox{}, false
	}
	ex, okEx := taskdata.Int(data, "end_x")
	ez, okEz := taskdata.Int(data, "end_z")
	if !okEx && !okEz {
		return BoundingBox{}, false
	}
	height, ok := taskdata.Int(data, "height")
	if !ok || height < 1 {
		return BoundingBox{}, false
	}
	if !okEx {
		ex = sx
	}
	if !okEz {
		ez = sz
	}
	alignedX := sx == ex
	alignedZ := sz == ez
	if alignedX == alignedZ {
		// must be axis aligned on exactly one horizontal axis
		return BoundingBox{}, false
	}
	return New(sx, sy, sz, ex, sy+height-1, ez), true
}

func deriveSingleCell(data map[string]interface{}) (BoundingBox, bool) {
	x, ok := taskdata.Int(data, "x")
	if !ok {
		return BoundingBox{}, false
	}
	y, ok := taskdata.Int(data, "y")
	if !ok {
		return BoundingBox{}, false
	}
	z, ok := taskdata.Int(data, "z")
	if !ok {
		return BoundingBox{}, false
	}
	return Point(x, y, z), true
}

func derivePrefabLadder(data map[string]interface{}) (BoundingBox, bool) {
	x, ok := taskdata.Int(data, "x")
	if !ok {
		return BoundingBox{}, false
	}
	y, ok := taskdata.Int(data, "y")
	if !ok {
		return BoundingBox{}, false
	}
	z, ok := taskdata.Int(data, "z")
	if !ok {
		return BoundingBox{}, false
	}
	height, ok := taskdata.Int(data, "height")
	if !ok || height < 1 {
		return BoundingBox{}, false
	}
	return New(x, y, z, x, y+height-1, z), true
}
