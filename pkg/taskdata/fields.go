// Package taskdata provides shared accessors over the untyped, self
// describing task_data documents that pkg/geometry and pkg/validation
// both need to read. A document is a map[string]interface{} decoded from
// JSON (numbers as float64) or built directly in Go (numbers as int) —
// every accessor here tolerates both.
package taskdata

// Int reads a required integer field. ok is false if the field is
// missing or not a number.
func Int(data map[string]interface{}, key string) (int, bool) {
	v, present := data[key]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// String reads a required string field.
func String(data map[string]interface{}, key string) (string, bool) {
	v, present := data[key]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool reads an optional boolean field with a default.
func Bool(data map[string]interface{}, key string, def bool) bool {
	v, present := data[key]
	if !present {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// StringWithDefault reads an optional string field with a default.
func StringWithDefault(data map[string]interface{}, key, def string) string {
	if s, ok := String(data, key); ok && s != "" {
		return s
	}
	return def
}

// Array reads a slice-typed field ([]interface{}).
func Array(data map[string]interface{}, key string) ([]interface{}, bool) {
	v, present := data[key]
	if !present {
		return nil, false
	}
	arr, ok := v.([]interface{})
	return arr, ok
}
