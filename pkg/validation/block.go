package validation

import "github.com/voxelforge/buildcore/pkg/apierrors"

func validateBlockSet(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("block_set")
	requireInt(err, data, "start_x")
	requireInt(err, data, "start_y")
	requireInt(err, data, "start_z")
	blocks, ok := data["blocks"]
	if !ok {
		err.AddFieldError("blocks", "is required")
		return finalize(err)
	}
	plane, ok := blocks.([]interface{})
	if !ok || len(plane) == 0 {
		err.AddFieldError("blocks", "must be a non-empty 3-D array")
		return finalize(err)
	}
	for _, row := range plane {
		column, ok := row.([]interface{})
		if !ok || len(column) == 0 {
			err.AddFieldError("blocks", "must be a non-empty 3-D array")
			return finalize(err)
		}
		for _, cell := range column {
			if _, ok := cell.([]interface{}); !ok {
				err.AddFieldError("blocks", "must be a non-empty 3-D array")
				return finalize(err)
			}
		}
	}
	return finalize(err)
}

func validateBlockFill(data map[string]interface{}) *apierrors.ValidationError {
	err := newErr("block_fill")
	requireInt(err, data, "x1")
	requireInt(err, data, "y1")
	requireInt(err, data, "z1")
	requireInt(err, data, "x2")
	requireInt(err, data, "y2")
	requireInt(err, data, "z2")
	requireNamespacedID(err, data, "block_type")
	return finalize(err)
}
