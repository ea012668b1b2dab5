// Package validation enforces the per-task_type schema described in
// spec §4.3/§6.3 over the untyped task_data documents the build service
// accepts from its caller.
package validation

import (
	"fmt"
	"regexp"

	playground "github.com/go-playground/validator/v10"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/taskdata"
)

var structValidator = playground.New()

var namespacedID = regexp.MustCompile(`^[a-z0-9_.-]+:[a-z0-9_./-]+$`)

var validFacings = map[string]bool{"north": true, "south": true, "east": true, "west": true}

// TaskValidator validates the task_data payload for one task_type.
// Data is pure: it has no side effects and depends only on its input.
type TaskValidator struct{}

// New constructs a TaskValidator.
func New() *TaskValidator {
	return &TaskValidator{}
}

// Validate dispatches to the per-kind check and returns nil when data is
// acceptable for kind, or a *apierrors.ValidationError carrying every
// offending field otherwise.
func (v *TaskValidator) Validate(kind string, data map[string]interface{}) *apierrors.ValidationError {
	if data == nil {
		err := apierrors.NewValidationError("task_data", "task_data is required")
		err.AddFieldError("task_data", "must not be nil")
		return err
	}
	switch kind {
	case "BLOCK_SET":
		return validateBlockSet(data)
	case "BLOCK_FILL":
		return validateBlockFill(data)
	case "PREFAB_DOOR":
		return validatePrefabDoor(data)
	case "PREFAB_STAIRS":
		return validatePrefabStairs(data)
	case "PREFAB_WINDOW":
		return validatePrefabWindow(data)
	case "PREFAB_TORCH":
		return validatePrefabTorch(data)
	case "PREFAB_SIGN":
		return validatePrefabSign(data)
	case "PREFAB_LADDER":
		return validatePrefabLadder(data)
	default:
		err := apierrors.NewValidationError("task_data", "unrecognized task_type")
		err.AddFieldError("task_type", fmt.Sprintf("%q is not a known task_type", kind))
		return err
	}
}

func newErr(resource string) *apierrors.ValidationError {
	return apierrors.NewValidationError(resource, "task_data failed validation")
}

func requireInt(err *apierrors.ValidationError, data map[string]interface{}, field string) (int, bool) {
	v, ok := taskdata.Int(data, field)
	if !ok {
		err.AddFieldError(field, "is required and must be an integer")
	}
	return v, ok
}

func requireString(err *apierrors.ValidationError, data map[string]interface{}, field string) (string, bool) {
	v, ok := taskdata.String(data, field)
	if !ok || v == "" {
		err.AddFieldError(field, "is required and must be a non-empty string")
		return v, false
	}
	return v, true
}

func requireNamespacedID(err *apierrors.ValidationError, data map[string]interface{}, field string) {
	v, ok := requireString(err, data, field)
	if !ok {
		return
	}
	if !namespacedID.MatchString(v) {
		err.AddFieldError(field, "must be a namespaced block id of the form namespace:path")
	}
}

func requireEnum(err *apierrors.ValidationError, data map[string]interface{}, field string, allowed map[string]bool) {
	v, ok := requireString(err, data, field)
	if !ok {
		return
	}
	if !allowed[v] {
		err.AddFieldError(field, fmt.Sprintf("%q is not one of the allowed values", v))
	}
}

func requirePositiveInt(err *apierrors.ValidationError, data map[string]interface{}, field string) {
	v, ok := requireInt(err, data, field)
	if !ok {
		return
	}
	if v < 1 {
		err.AddFieldError(field, "must be >= 1")
	}
}

// varCheck runs a single-value playground/validator tag (e.g. "oneof=left right",
// "min=0,max=15") and records a field error using the tag itself as the
// message when it fails.
func varCheck(err *apierrors.ValidationError, field string, value interface{}, tag string) {
	if verr := structValidator.Var(value, tag); verr != nil {
		err.AddFieldError(field, fmt.Sprintf("must satisfy %q", tag))
	}
}

func finalize(err *apierrors.ValidationError) *apierrors.ValidationError {
	if len(err.FieldErrors) == 0 {
		return nil
	}
	return err
}
