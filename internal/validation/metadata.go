package validation

import (
	"encoding/json"
	"reflect"

	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// CheckMetadataBytes rejects a metadata value whose JSON serialization would
// exceed maxBytes, and rejects circular references with a ValidationError
// instead of letting json.Marshal recurse forever (spec section 8, Boundary
// behaviors: "must raise a ValidationError rather than infinite-loop").
func CheckMetadataBytes(op string, metadata any, maxBytes int) *apperrors.UnifiedError {
	if metadata == nil {
		return nil
	}
	if err := detectCycle(metadata, map[uintptr]bool{}); err != nil {
		return apperrors.NewValidation(op, "metadata contains a circular reference")
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return apperrors.NewValidation(op, "metadata is not serializable: "+err.Error())
	}
	if len(encoded) > maxBytes {
		return apperrors.NewSizeLimitExceeded(op, "metadata", maxBytes, len(encoded), "bytes")
	}
	return nil
}

// detectCycle walks maps, slices and pointers reachable from v, tracking the
// identity (backing pointer) of every container already on the current
// path. Structs and scalars cannot participate in a cycle built from
// decoded JSON-like data, so only map/slice/pointer kinds are tracked.
func detectCycle(v any, visiting map[uintptr]bool) error {
	rv := reflect.ValueOf(v)
	return detectCycleValue(rv, visiting)
}

func detectCycleValue(rv reflect.Value, visiting map[uintptr]bool) error {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return detectCycleValue(rv.Elem(), visiting)
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visiting[ptr] {
			return errCircular
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)
		return detectCycleValue(rv.Elem(), visiting)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visiting[ptr] {
			return errCircular
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)
		iter := rv.MapRange()
		for iter.Next() {
			if err := detectCycleValue(iter.Value(), visiting); err != nil {
				return err
			}
		}
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visiting[ptr] {
			return errCircular
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)
		for i := 0; i < rv.Len(); i++ {
			if err := detectCycleValue(rv.Index(i), visiting); err != nil {
				return err
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := detectCycleValue(rv.Index(i), visiting); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			if err := detectCycleValue(rv.Field(i), visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

var errCircular = errCircularType{}

type errCircularType struct{}

func (errCircularType) Error() string { return "circular reference" }
