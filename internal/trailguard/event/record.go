// Package event models raw CloudTrail records as schema-less JSON trees.
//
// A Record is whatever encoding/json produced for one entry of a trail file's
// Records array. Field access goes through default-producing accessors so a
// missing path or an unexpected type never panics.
package event

// Record is one parsed audit-log record.
// Values are string, float64, bool, nil, []any or map[string]any.
type Record map[string]any

// Value walks path through nested maps and returns the value found there.
// ok is false when any segment is missing or an intermediate value is not a map.
func (r Record) Value(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := AsMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (r Record) String(path ...string) string {
	return r.StringOr("", path...)
}

// StringOr returns the string at path, or def when absent, null or not a string.
func (r Record) StringOr(def string, path ...string) string {
	v, ok := r.Value(path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Map returns the object at path. Missing or non-object values yield an empty map.
func (r Record) Map(path ...string) map[string]any {
	v, ok := r.Value(path...)
	if !ok {
		return map[string]any{}
	}
	m, ok := AsMap(v)
	if !ok {
		return map[string]any{}
	}
	return m
}

// AsMap reports whether v is a JSON object.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return nil, false
		}
		return t, true
	case Record:
		if t == nil {
			return nil, false
		}
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// AsList reports whether v is a JSON array.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// List returns m[key] when it is an array, otherwise nil.
func List(m map[string]any, key string) []any {
	l, _ := AsList(m[key])
	return l
}

// FirstPresent returns the first value among keys that is set and non-empty.
// It is used where AWS emits the same field under different casings
// (ipPermissions/IpPermissions, cidrIp/CidrIp) depending on API version.
func FirstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isEmpty(v) {
			return v
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
