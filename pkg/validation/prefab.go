package validation

import (
	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/taskdata"
)

func validatePrefabDoor(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_door")
	requireInt(err, data, "start_x")
	requireInt(err, data, "start_y")
	requireInt(err, data, "start_z")
	requireEnum(err, data, "facing", validFacings)
	requireNamespacedID(err, data, "block_type")
	requirePositiveInt(err, data, "width")
	if hinge, ok := taskdata.String(data, "hinge"); ok {
		varCheck(err, "hinge", hinge, "oneof=left right")
	}
	return finalize(err)
}

func validatePrefabStairs(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_stairs")
	requireInt(err, data, "start_x")
	requireInt(err, data, "start_y")
	requireInt(err, data, "start_z")
	requireInt(err, data, "end_x")
	requireInt(err, data, "end_y")
	requireInt(err, data, "end_z")
	requireNamespacedID(err, data, "block_type")
	requireNamespacedID(err, data, "stair_type")
	requireEnum(err, data, "staircase_direction", validFacings)
	return finalize(err)
}

func validatePrefabWindow(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_window")
	sx, okSx := requireInt(err, data, "start_x")
	requireInt(err, data, "start_y")
	sz, okSz := requireInt(err, data, "start_z")
	requireNamespacedID(err, data, "block_type")
	requirePositiveInt(err, data, "height")

	ex, okEx := taskdata.Int(data, "end_x")
	ez, okEz := taskdata.Int(data, "end_z")
	if !okEx && !okEz {
		err.AddFieldError("end_x", "one of end_x or end_z is required")
		err.AddFieldError("end_z", "one of end_x or end_z is required")
		return finalize(err)
	}
	if okSx && okSz {
		if !okEx {
			ex = sx
		}
		if !okEz {
			ez = sz
		}
		alignedX := sx == ex
		alignedZ := sz == ez
		if alignedX == alignedZ {
			err.AddFieldError("end_x", "window must be axis-aligned on exactly one of x or z")
			err.AddFieldError("end_z", "window must be axis-aligned on exactly one of x or z")
		}
	}
	return finalize(err)
}

func validatePrefabTorch(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_torch")
	requireInt(err, data, "x")
	requireInt(err, data, "y")
	requireInt(err, data, "z")
	blockType, ok := requireString(err, data, "block_type")
	if ok && blockType == "wall_torch" {
		if facing, present := taskdata.String(data, "facing"); present {
			varCheck(err, "facing", facing, "oneof=north south east west")
		}
	}
	return finalize(err)
}

func validatePrefabSign(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_sign")
	requireInt(err, data, "x")
	requireInt(err, data, "y")
	requireInt(err, data, "z")
	requireNamespacedID(err, data, "block_type")

	if front, ok := taskdata.Array(data, "front_lines"); ok {
		varCheck(err, "front_lines", front, "max=4")
	}
	if back, ok := taskdata.Array(data, "back_lines"); ok {
		varCheck(err, "back_lines", back, "max=4")
	}
	if rotation, ok := taskdata.Int(data, "rotation"); ok {
		varCheck(err, "rotation", rotation, "min=0,max=15")
	}
	return finalize(err)
}

func validatePrefabLadder(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("prefab_ladder")
	requireInt(err, data, "x")
	requireInt(err, data, "y")
	requireInt(err, data, "z")
	requireNamespacedID(err, data, "block_type")
	requirePositiveInt(err, data, "height")
	if facing, ok := taskdata.String(data, "facing"); ok {
		varCheck(err, "facing", facing, "oneof=north south east west")
	}
	return finalize(err)
}
